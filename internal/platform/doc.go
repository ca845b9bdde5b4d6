// Package platform defines the uniform client abstraction over the three
// music platforms (Spotify, Amazon Music, YouTube Music) and the song and
// snapshot types shared by the reconciliation engine and the dataset
// expansion workflow.
//
// The three [Client] implementations differ in backing technology:
//
//   - [SpotifyClient] : Spotify Web API via zmb3/spotify with OAuth2
//   - [YouTubeClient] : YouTube Music via a local HTTP proxy
//   - [AmazonClient] : scraping the Amazon Music web player through a
//     browser automation session
//
// All of them normalize song names and artists to lower case on the way in,
// return at most five search candidates, and treat transient failures on a
// single search as an empty result rather than retrying.
package platform
