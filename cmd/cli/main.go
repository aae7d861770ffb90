package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/boyter/gocodewalker"
	"github.com/reclaim-the-stack/rubocop-action/internal/config"
	"github.com/reclaim-the-stack/rubocop-action/internal/diff"
	"github.com/reclaim-the-stack/rubocop-action/internal/review"
	"github.com/reclaim-the-stack/rubocop-action/internal/rubocop"
	f "github.com/reclaim-the-stack/rubocop-action/pkg/functional"
	"github.com/urfave/cli/v2"
)

func stripRoot(root string, path string) string {
	if root == "." {
		return path
	}
	return strings.TrimPrefix(path, root+"/")
}

func main() {
	var repo string

	app := &cli.App{
		Name:        "rubocop-cli",
		Usage:       "CLI tool for inspecting rubocop-action behavior locally",
		Description: "",
		Commands: []*cli.Command{
			{
				Name:    "patch",
				Aliases: []string{"p"},
				Usage:   "Print the changed-line set of a patch file",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() == 0 {
						return fmt.Errorf("patch file is required")
					}
					return printChangedLines(cCtx.Args().First())
				},
			},
			{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "Run rubocop over a local repo and print grouped offenses",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "root",
						Aliases:     []string{"r", "repo"},
						Value:       "./",
						Usage:       "Path to local Git repo",
						Destination: &repo,
					},
				},
				Action: func(cCtx *cli.Context) error {
					return checkRepo(strings.TrimSuffix(repo, "/"))
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func printChangedLines(path string) error {
	patch, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading patch file: %s", err)
	}
	lineSet, err := diff.ChangedLines(string(patch))
	if err != nil {
		return fmt.Errorf("error parsing patch: %s", err)
	}
	lines := lineSet.Items()
	slices.Sort(lines)
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func checkRepo(repo string) error {
	if repoStat, err := os.Lstat(repo); err != nil || !repoStat.IsDir() {
		return fmt.Errorf("root is not a directory: %s", repo)
	}

	conf, err := config.ReadConfig(repo)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error reading rubocop.toml - using default config\n")
	}

	fileListQueue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(repo, fileListQueue)
	walker.ExcludeDirectory = []string{".git"}

	errChan := make(chan error)

	go func() {
		err := walker.Start()
		errChan <- err
		close(errChan)
	}()

	files := make([]string, 0)
	for file := range fileListQueue {
		files = append(files, stripRoot(repo, file.Location))
	}

	if err := <-errChan; err != nil {
		return fmt.Errorf("error walking repo: %s", err)
	}

	paths := f.Filtered(files, func(path string) bool {
		return !matchesAny(conf.Ignore, path) && matchesAny(conf.Only, path)
	})
	if len(paths) == 0 {
		fmt.Println("No files to check")
		return nil
	}

	report, err := rubocop.NewRunner(repo).Run(paths, conf.RubocopArgs)
	if err != nil {
		return fmt.Errorf("error running rubocop: %s", err)
	}

	groups := review.BuildGroups(report, diff.FileSet{})
	for _, group := range groups {
		fmt.Printf("%s\n%s\n", group.Marker(), group.Body())
	}
	fmt.Printf("%d offenses in %d locations\n", report.OffenseCount(), len(groups))
	return nil
}

func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if match, err := doublestar.Match(pattern, path); err == nil && match {
			return true
		}
	}
	return false
}
