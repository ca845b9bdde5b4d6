// Amazon Music [Client] implementation.
//
// Amazon Music has no public API, so this client drives the web player
// through an [automation.Session] and scrapes the rendered pages. Selectors
// target the player's custom elements (music-image-row, music-shoveler,
// music-horizontal-item) whose data lives in attributes rather than text
// nodes.
package platform

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/tunelark/crossfade/internal/automation"
	"github.com/tunelark/crossfade/internal/shared"
)

const songShelfSel = `music-shoveler[primary-text="Songs"]`

// AmazonClient implements [Client] by scraping the Amazon Music web player.
type AmazonClient struct {
	session    automation.Session
	email      string
	password   string
	baseURL    string
	shortDelay time.Duration
	longDelay  time.Duration
	logger     *log.Logger
	rng        *rand.Rand
	opened     bool
}

// NewAmazonClient creates an Amazon Music client over the given session.
// The session is not started until Open.
func NewAmazonClient(session automation.Session, cfg shared.AmazonConfig, auto shared.AutomationConfig, logger *log.Logger) (*AmazonClient, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: amazon email and password", shared.ErrMissingCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://music.amazon.de"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &AmazonClient{
		session:    session,
		email:      cfg.Email,
		password:   cfg.Password,
		baseURL:    strings.TrimRight(baseURL, "/"),
		shortDelay: auto.ShortDelay(),
		longDelay:  auto.LongDelay(),
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (a *AmazonClient) Platform() Platform { return Amazon }

// Wildcard returns the generic search wildcard symbol.
func (a *AmazonClient) Wildcard() string { return "*" }

// Open starts the browser session and signs in. Must run before any other
// operation; the engine opens lazily, right before the first Amazon call.
func (a *AmazonClient) Open(ctx context.Context) error {
	if a.opened {
		return nil
	}
	if err := a.session.Start(ctx); err != nil {
		return err
	}
	if err := a.login(ctx); err != nil {
		// Half-open sessions leak browser processes.
		a.session.Stop()
		return err
	}
	a.opened = true
	return nil
}

// Close stops the browser session. Safe to call when never opened.
func (a *AmazonClient) Close() error {
	a.opened = false
	return a.session.Stop()
}

// login walks the sign-in form. Two-factor prompts can't be completed
// headlessly, so on detecting one the client waits for the user to finish in
// the browser window.
func (a *AmazonClient) login(ctx context.Context) error {
	if err := a.session.Navigate(ctx, a.baseURL+"/forceSignIn?useHorizonte=true"); err != nil {
		return err
	}
	a.settle(ctx, a.shortDelay)

	steps := []struct {
		sel    string
		action func(sel string) error
	}{
		{"#ap_email", func(sel string) error { return a.session.SendKeys(ctx, sel, a.email) }},
		{"#continue", func(sel string) error { return a.session.Click(ctx, sel) }},
		{"#ap_password", func(sel string) error { return a.session.SendKeys(ctx, sel, a.password) }},
		{"#signInSubmit", func(sel string) error { return a.session.Click(ctx, sel) }},
	}
	for _, step := range steps {
		visible, err := a.session.WaitVisible(ctx, step.sel, a.longDelay)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("%w: login element %s never appeared", shared.ErrAuthFailed, step.sel)
		}
		if err := step.action(step.sel); err != nil {
			return err
		}
		a.settle(ctx, a.shortDelay)
	}

	// Amazon sometimes interjects an OTP form or a device-approval screen.
	// Both require the user; wait until the home page search bar shows up.
	if otp, err := a.session.WaitVisible(ctx, "#otp_submit_form", a.longDelay); err != nil {
		return err
	} else if otp {
		a.logger.Warn("two-factor code required, complete sign-in in the browser window")
		if err := a.waitForHomepage(ctx); err != nil {
			return err
		}
	}

	if approval, err := a.session.WaitVisible(ctx, "#channelDetailsWithImprovedLayout", a.longDelay); err != nil {
		return err
	} else if approval {
		a.logger.Warn("approve access to Amazon Music on your phone or another device")
		if err := a.waitForHomepage(ctx); err != nil {
			return err
		}
	}

	a.settle(ctx, a.shortDelay)
	return nil
}

// waitForHomepage polls for the navbar search input until it renders or the
// caller's context expires.
func (a *AmazonClient) waitForHomepage(ctx context.Context) error {
	for {
		visible, err := a.session.WaitVisible(ctx, "#navbarSearchInput", a.longDelay)
		if err != nil {
			return err
		}
		if visible {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: waiting for homepage: %v", shared.ErrTimeout, err)
		}
	}
}

// FetchPlaylist resolves the playlist page from the user's playlist overview
// and scrapes every row. The returned handle is the playlist name itself,
// which is also the key the commit menu navigates by.
func (a *AmazonClient) FetchPlaylist(ctx context.Context, name string) (*Snapshot, error) {
	if !a.opened {
		return nil, shared.ErrSessionClosed
	}

	if err := a.session.Navigate(ctx, a.baseURL+"/my/playlists"); err != nil {
		return nil, err
	}
	a.settle(ctx, a.longDelay)

	doc, err := a.scrape(ctx)
	if err != nil {
		return nil, err
	}

	playlistURL := ""
	want := strings.ToLower(name)
	doc.Find("[primary-text][primary-href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title, _ := sel.Attr("primary-text")
		if strings.ToLower(title) != want {
			return true
		}
		playlistURL, _ = sel.Attr("primary-href")
		return false
	})
	if playlistURL == "" {
		return nil, fmt.Errorf("%w: %q on amazon", shared.ErrPlaylistNotFound, name)
	}

	if err := a.session.Navigate(ctx, a.baseURL+playlistURL); err != nil {
		return nil, err
	}
	a.settle(ctx, a.longDelay)

	doc, err = a.scrape(ctx)
	if err != nil {
		return nil, err
	}

	var songs []Song
	doc.Find("music-image-row[data-key]").Each(func(_ int, sel *goquery.Selection) {
		title, _ := sel.Attr("primary-text")
		artist, _ := sel.Attr("secondary-text-1")
		if title == "" {
			return
		}
		songs = append(songs, NewSong(title, artist))
	})

	return &Snapshot{Platform: Amazon, Handle: strings.ToLower(name), Songs: songs}, nil
}

// Search types a query into the navbar search and scrapes the Songs shelf.
// A shelf that never renders is an empty result, not an error.
func (a *AmazonClient) Search(ctx context.Context, name, artist string, opts SearchOptions) ([]Candidate, error) {
	if !a.opened {
		return nil, shared.ErrSessionClosed
	}

	visible, err := a.session.WaitVisible(ctx, "#navbarSearchInput", a.longDelay)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	if err := a.session.ClearInput(ctx, "#navbarSearchInput"); err != nil {
		return nil, err
	}
	if err := a.session.SendKeys(ctx, "#navbarSearchInput", searchQuery(name, artist)); err != nil {
		return nil, err
	}
	if err := a.session.PressEnter(ctx, "#navbarSearchInput"); err != nil {
		return nil, err
	}
	a.settle(ctx, a.longDelay)

	shelf, err := a.session.WaitVisible(ctx, songShelfSel, a.longDelay)
	if err != nil {
		return nil, err
	}
	if !shelf {
		return nil, nil
	}

	doc, err := a.scrape(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	doc.Find(songShelfSel + " music-horizontal-item").Each(func(i int, sel *goquery.Selection) {
		title, _ := sel.Attr("primary-text")
		artistText, _ := sel.Attr("secondary-text")
		if title == "" {
			return
		}
		locator := fmt.Sprintf("%s music-horizontal-item:nth-of-type(%d)", songShelfSel, i+1)
		candidates = append(candidates, NewCandidate(title, []string{artistText}, locator))
	})
	if len(candidates) == 0 {
		return nil, nil
	}

	return trimCandidates(a.rng, candidates, MaxCandidates, opts.Random), nil
}

// Commit adds the candidate to the playlist through the item's context menu.
// The handle is the playlist name. Amazon raises a confirmation dialog when
// the song is already present; that surfaces as [shared.ErrDuplicateSong].
func (a *AmazonClient) Commit(ctx context.Context, handle string, c Candidate) error {
	if !a.opened {
		return shared.ErrSessionClosed
	}

	if err := a.session.Click(ctx, c.ID+` [icon-name="more" i]`); err != nil {
		return err
	}
	a.settle(ctx, a.shortDelay)

	visible, err := a.session.WaitVisible(ctx, "music-list-item", a.longDelay)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("%w: context menu never opened", shared.ErrElementWait)
	}
	if err := a.session.Click(ctx, "music-list-item"); err != nil {
		return err
	}

	playlistSel := fmt.Sprintf(`[primary-text=%q i]`, handle)
	visible, err = a.session.WaitVisible(ctx, playlistSel, a.longDelay)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("%w: playlist %q not in add menu", shared.ErrElementWait, handle)
	}
	if err := a.session.Click(ctx, playlistSel); err != nil {
		return err
	}

	// Duplicate dialog only appears when the song is already in the playlist.
	dialog, err := a.session.WaitVisible(ctx, "#primaryDialogButton2", a.longDelay)
	if err != nil {
		return err
	}
	if dialog {
		if err := a.session.Click(ctx, "#primaryDialogButton2"); err != nil {
			return err
		}
		a.settle(ctx, a.shortDelay)
		return shared.ErrDuplicateSong
	}

	a.settle(ctx, a.shortDelay)
	return nil
}

// scrape zooms out to force lazy rows to render, then parses the page.
func (a *AmazonClient) scrape(ctx context.Context) (*goquery.Document, error) {
	if err := a.session.ZoomOut(ctx); err != nil {
		return nil, err
	}
	a.settle(ctx, a.shortDelay)

	html, err := a.session.HTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// settle sleeps for the given delay, returning early when ctx is done. The
// web player keeps rendering after elements report visible, so element waits
// alone are not enough.
func (a *AmazonClient) settle(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
