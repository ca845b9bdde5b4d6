// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, datasetCommand, authCommand, shellCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// syncCommand reconciles a playlist across two or all platforms
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize a playlist across two platforms, or all of them",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
			&cli.StringArg{Name: "platform1"},
			&cli.StringArg{Name: "platform2"},
		},
		Action: r.Sync,
	}
}

// datasetCommand manages the labeled pair datasets behind the matcher
func datasetCommand(r *Runner) *cli.Command {
	datasetFlag := &cli.StringFlag{
		Name:     "dataset",
		Aliases:  []string{"d"},
		Usage:    "Name of the dataset to operate on",
		Required: true,
	}

	return &cli.Command{
		Name:    "dataset",
		Aliases: []string{"data"},
		Usage:   "Create, grow and export matcher training data",
		Commands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create an empty dataset",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.DatasetNew,
			},
			{
				Name:  "load",
				Usage: "Verify a dataset exists and show its size",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.DatasetLoad,
			},
			{
				Name:  "expand",
				Usage: "Harvest new unlabeled pairs from two platforms",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "platform1"},
					&cli.StringArg{Name: "platform2"},
				},
				Flags: []cli.Flag{
					datasetFlag,
					&cli.IntFlag{
						Name:    "repeat",
						Aliases: []string{"n"},
						Usage:   "Number of pairs to add",
						Value:   1,
					},
				},
				Action: r.DatasetExpand,
			},
			{
				Name:   "guess",
				Usage:  "Fill the ml_guess column from the current model",
				Flags:  []cli.Flag{datasetFlag},
				Action: r.DatasetGuess,
			},
			{
				Name:  "process",
				Usage: "Export the featurized dataset for training",
				Flags: []cli.Flag{
					datasetFlag,
					&cli.BoolFlag{
						Name:  "override",
						Usage: "Rewrite the processed file instead of appending new rows",
					},
				},
				Action: r.DatasetProcess,
			},
			{
				Name:   "export",
				Usage:  "Export the raw dataset as CSV",
				Flags:  []cli.Flag{datasetFlag},
				Action: r.DatasetExport,
			},
		},
	}
}

// authCommand runs the Spotify OAuth authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Spotify via OAuth2 and save the token",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Seconds to wait for the browser authorization",
				Value: 300,
			},
		},
		Action: r.Auth,
	}
}

// shellCommand starts the interactive prompt
func shellCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "shell",
		Aliases: []string{"tui"},
		Usage:   "Start the interactive shell",
		Action:  r.Shell,
	}
}

// setupCommand writes the config scaffold and prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config scaffold and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
