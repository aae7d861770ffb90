package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/reclaim-the-stack/rubocop-action/internal/app"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

var (
	WarningBuffer = bytes.NewBuffer([]byte{})
	InfoBuffer    = bytes.NewBuffer([]byte{})
)

var (
	ghToken = flag.String("token", getEnv("INPUT_GITHUB-TOKEN", ""), "GitHub authentication token")
	repoDir = flag.String("dir", getEnv("GITHUB_WORKSPACE", "/"), "Path to local Git repo")
	pr      = flag.Int("pr", ignoreError(strconv.Atoi(getEnv("INPUT_PR", ""))), "Pull Request number")
	ghRepo  = flag.String("repo", getEnv("INPUT_REPOSITORY", ""), "GitHub repo name")
	verbose = flag.Bool("v", ignoreError(strconv.ParseBool(getEnv("INPUT_VERBOSE", "0"))), "Verbose output")
)

func flushBuffers() {
	if _, err := WarningBuffer.WriteTo(os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	if *verbose {
		if _, err := InfoBuffer.WriteTo(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
		}
	}
}

// errorAndExit reports a fatal error, distinct from the "offenses found"
// exit path.
func errorAndExit(format string, args ...interface{}) {
	flushBuffers()
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func init() {
	flag.Parse()
	badFlags := make([]string, 0, 3)
	if *ghToken == "" {
		badFlags = append(badFlags, "token")
	}
	if *pr == 0 {
		badFlags = append(badFlags, "pr")
	}
	if *ghRepo == "" {
		badFlags = append(badFlags, "repo")
	}
	if len(badFlags) > 0 {
		errorAndExit("Required flags or environment variables not set: %s\n", badFlags)
	}
}

func main() {
	application, err := app.New(app.Config{
		Token:         *ghToken,
		RepoDir:       *repoDir,
		PR:            *pr,
		Repo:          *ghRepo,
		Verbose:       *verbose,
		InfoBuffer:    InfoBuffer,
		WarningBuffer: WarningBuffer,
	})
	if err != nil {
		errorAndExit("Setup Error: %v\n", err)
	}

	result, err := application.Run()
	if err != nil {
		errorAndExit("%v\n", err)
	}

	flushBuffers()
	fmt.Printf(
		"Comments synced: %d created, %d updated, %d deleted, %d unchanged\n",
		result.Created, result.Updated, result.Deleted, result.Skipped,
	)
	if result.OffenseCount > 0 {
		fmt.Printf("Rubocop found %d offenses\n", result.OffenseCount)
		os.Exit(*application.Conf.ExitCode)
	}
	fmt.Println("No rubocop offenses found")
}
