package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/go-github/v63/github"
	"github.com/reclaim-the-stack/rubocop-action/internal/config"
	"github.com/reclaim-the-stack/rubocop-action/internal/diff"
	gh "github.com/reclaim-the-stack/rubocop-action/internal/github"
	"github.com/reclaim-the-stack/rubocop-action/internal/review"
	"github.com/reclaim-the-stack/rubocop-action/internal/rubocop"
	f "github.com/reclaim-the-stack/rubocop-action/pkg/functional"
)

// Config holds the application configuration
type Config struct {
	Token         string
	RepoDir       string
	PR            int
	Repo          string
	Verbose       bool
	InfoBuffer    io.Writer
	WarningBuffer io.Writer
}

// Result summarizes one run for the caller deciding the exit status.
type Result struct {
	OffenseCount int
	Created      int
	Updated      int
	Deleted      int
	Skipped      int
}

// App represents the application with its dependencies
type App struct {
	Conf   *config.Config
	config *Config
	client gh.Client
	runner rubocop.Runner
}

// New creates a new App instance with the given configuration
func New(cfg Config) (*App, error) {
	repoSplit := strings.Split(cfg.Repo, "/")
	if len(repoSplit) != 2 {
		return nil, fmt.Errorf("invalid repo name: %s", cfg.Repo)
	}
	owner := repoSplit[0]
	repo := repoSplit[1]

	client := gh.NewClient(owner, repo, cfg.Token)
	client.SetWarningBuffer(cfg.WarningBuffer)
	client.SetInfoBuffer(cfg.InfoBuffer)
	app := &App{
		config: &cfg,
		client: client,
		runner: rubocop.NewRunner(cfg.RepoDir),
	}

	return app, nil
}

func (a *App) printDebug(format string, args ...interface{}) {
	if a.config.Verbose {
		_, _ = fmt.Fprintf(a.config.InfoBuffer, format, args...)
	}
}

func (a *App) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.config.WarningBuffer, format, args...)
}

// Run executes one full synchronization pass: fetch the pull request state,
// lint the changed files, and converge both comment populations on the
// offense report.
func (a *App) Run() (*Result, error) {
	if err := a.client.InitPR(a.config.PR); err != nil {
		return &Result{}, fmt.Errorf("InitPR Error: %v", err)
	}
	a.printDebug("PR: %d\n", a.client.PR().GetNumber())

	conf, err := config.ReadConfig(a.config.RepoDir)
	if err != nil {
		a.printWarn("Error reading rubocop.toml - using default config\n")
	}
	a.Conf = conf

	changedFiles, err := a.client.ListChangedFiles()
	if err != nil {
		return &Result{}, fmt.Errorf("ListChangedFiles Error: %v", err)
	}
	fileSet, lintPaths, err := a.collectFiles(changedFiles)
	if err != nil {
		return &Result{}, err
	}
	a.printDebug("Changed files: %d, lintable: %d\n", len(fileSet), len(lintPaths))

	report := &rubocop.Report{}
	if len(lintPaths) > 0 {
		report, err = a.runner.Run(lintPaths, conf.RubocopArgs)
		if err != nil {
			return &Result{}, fmt.Errorf("Rubocop Error: %v", err)
		}
	}

	groups := review.BuildGroups(report, fileSet)
	inDiff, outside := review.Split(groups)
	a.printDebug("Offense groups: %d in diff, %d offenses outside\n", len(inDiff), len(outside))

	// Both populations are fetched in full before any comment is mutated.
	reviewComments, err := a.client.ListReviewComments()
	if err != nil {
		return &Result{}, fmt.Errorf("ListReviewComments Error: %v", err)
	}
	issueComments, err := a.client.ListIssueComments()
	if err != nil {
		return &Result{}, fmt.Errorf("ListIssueComments Error: %v", err)
	}

	result := &Result{OffenseCount: report.OffenseCount()}

	lineIntents := review.Reconcile(review.DesiredLineComments(inDiff), reviewComments)
	rejected, err := a.applyLineIntents(lineIntents, inDiff, result)
	if err != nil {
		return result, err
	}
	outside = append(outside, rejected...)

	aggregateIntents := review.Reconcile(review.DesiredAggregate(outside), issueComments)
	if err := a.applyAggregateIntents(aggregateIntents, result); err != nil {
		return result, err
	}

	return result, nil
}

// collectFiles builds the changed-line sets and picks the paths rubocop
// should be run on. Removed files have no new-file lines and are never
// linted; files whose patch GitHub omitted get an empty line set, so their
// offenses classify outside the diff.
func (a *App) collectFiles(changedFiles []*github.CommitFile) (diff.FileSet, []string, error) {
	fileSet := make(diff.FileSet, len(changedFiles))
	lintPaths := make([]string, 0, len(changedFiles))
	for _, file := range changedFiles {
		if file.GetStatus() == "removed" {
			continue
		}
		changed, err := diff.NewChangedFile(file.GetFilename(), file.GetPatch())
		if err != nil {
			return nil, nil, fmt.Errorf("Patch Error: %v", err)
		}
		fileSet[changed.Path] = changed
		if a.lintable(changed.Path) {
			lintPaths = append(lintPaths, changed.Path)
		}
	}
	return fileSet, lintPaths, nil
}

func (a *App) lintable(path string) bool {
	matches := func(pattern string) bool {
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			a.printWarn("WARNING: bad pattern %q: %v\n", pattern, err)
			return false
		}
		return match
	}
	if _, ignored := f.Find(a.Conf.Ignore, matches); ignored {
		return false
	}
	_, included := f.Find(a.Conf.Only, matches)
	return included
}

// applyLineIntents executes the per-line intents. A create rejected by
// GitHub with the "line must be part of the diff" error is not fatal: the
// group's offenses are handed back so the caller folds them into the
// aggregate comment.
func (a *App) applyLineIntents(intents []review.Intent, groups []*review.Group, result *Result) ([]review.Offense, error) {
	groupsByMarker := make(map[string]*review.Group, len(groups))
	for _, group := range groups {
		groupsByMarker[group.Marker()] = group
	}
	rejected := make([]review.Offense, 0)
	for _, intent := range intents {
		switch intent.Op {
		case review.Create:
			err := a.client.CreateReviewComment(intent.Path, intent.Line, intent.Body)
			if gh.IsDiffRejection(err) {
				a.printWarn("WARNING: %s rejected as outside the diff, deferring to aggregate comment\n", intent.Marker)
				if group, ok := groupsByMarker[intent.Marker]; ok {
					rejected = append(rejected, group.Offenses...)
				}
				continue
			}
			if err != nil {
				return rejected, fmt.Errorf("CreateReviewComment Error: %v", err)
			}
			result.Created++
		case review.Update:
			if err := a.client.UpdateReviewComment(intent.CommentID, intent.Body); err != nil {
				return rejected, fmt.Errorf("UpdateReviewComment Error: %v", err)
			}
			result.Updated++
		case review.Delete:
			if err := a.client.DeleteReviewComment(intent.CommentID); err != nil {
				return rejected, fmt.Errorf("DeleteReviewComment Error: %v", err)
			}
			result.Deleted++
		case review.Noop:
			a.printDebug("Skipping %s: comment up to date\n", intent.Marker)
			result.Skipped++
		}
	}
	return rejected, nil
}

func (a *App) applyAggregateIntents(intents []review.Intent, result *Result) error {
	for _, intent := range intents {
		switch intent.Op {
		case review.Create:
			if err := a.client.CreateIssueComment(intent.Body); err != nil {
				return fmt.Errorf("CreateIssueComment Error: %v", err)
			}
			result.Created++
		case review.Update:
			if err := a.client.UpdateIssueComment(intent.CommentID, intent.Body); err != nil {
				return fmt.Errorf("UpdateIssueComment Error: %v", err)
			}
			result.Updated++
		case review.Delete:
			if err := a.client.DeleteIssueComment(intent.CommentID); err != nil {
				return fmt.Errorf("DeleteIssueComment Error: %v", err)
			}
			result.Deleted++
		case review.Noop:
			a.printDebug("Skipping %s: comment up to date\n", intent.Marker)
			result.Skipped++
		}
	}
	return nil
}
