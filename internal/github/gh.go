package gh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v63/github"
	"github.com/reclaim-the-stack/rubocop-action/internal/review"
	f "github.com/reclaim-the-stack/rubocop-action/pkg/functional"
)

type NoPRError struct{}

func (e NoPRError) Error() string {
	return "PR not initialized"
}

// perPage is the fixed page size for every paginated listing. Pagination
// stops when a page comes back with fewer items than this.
const perPage = 100

// Client is the GitHub surface the action needs: the pull request itself,
// its changed files, and the two comment populations. Review comments and
// issue comments never share identity space, so each population has its own
// listing and write methods.
type Client interface {
	SetWarningBuffer(writer io.Writer)
	SetInfoBuffer(writer io.Writer)
	InitPR(prID int) error
	PR() *github.PullRequest
	ListChangedFiles() ([]*github.CommitFile, error)
	ListReviewComments() ([]review.Comment, error)
	ListIssueComments() ([]review.Comment, error)
	CreateReviewComment(path string, line int, body string) error
	UpdateReviewComment(commentID int64, body string) error
	DeleteReviewComment(commentID int64) error
	CreateIssueComment(body string) error
	UpdateIssueComment(commentID int64, body string) error
	DeleteIssueComment(commentID int64) error
}

type GHClient struct {
	ctx           context.Context
	owner         string
	repo          string
	client        *github.Client
	pr            *github.PullRequest
	warningBuffer io.Writer
	infoBuffer    io.Writer
}

func NewClient(owner, repo, token string) Client {
	client := github.NewClient(nil).WithAuthToken(token)
	return &GHClient{
		ctx:           context.Background(),
		owner:         owner,
		repo:          repo,
		client:        client,
		warningBuffer: io.Discard,
		infoBuffer:    io.Discard,
	}
}

func (gh *GHClient) PR() *github.PullRequest {
	return gh.pr
}

func (gh *GHClient) SetWarningBuffer(writer io.Writer) {
	gh.warningBuffer = writer
}

func (gh *GHClient) SetInfoBuffer(writer io.Writer) {
	gh.infoBuffer = writer
}

func (gh *GHClient) InitPR(prID int) error {
	pull, res, err := gh.client.PullRequests.Get(gh.ctx, gh.owner, gh.repo, prID)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if pull.GetState() == "closed" {
		_, _ = fmt.Fprintf(gh.warningBuffer, "WARNING: PR %d is closed\n", prID)
	}
	gh.pr = pull
	return nil
}

func (gh *GHClient) ListChangedFiles() ([]*github.CommitFile, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	allFiles := make([]*github.CommitFile, 0)
	listFiles := func(page int) (int, error) {
		listOptions := &github.ListOptions{PerPage: perPage, Page: page}
		files, res, err := gh.client.PullRequests.ListFiles(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return 0, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allFiles = append(allFiles, files...)
		return len(files), nil
	}
	if err := walkPaginatedApi(listFiles); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(gh.infoBuffer, "Fetched %d changed files\n", len(allFiles))
	return allFiles, nil
}

func (gh *GHClient) ListReviewComments() ([]review.Comment, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	allComments := make([]review.Comment, 0)
	listComments := func(page int) (int, error) {
		listOptions := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage, Page: page}}
		comments, res, err := gh.client.PullRequests.ListComments(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return 0, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allComments = append(allComments, f.Map(comments, func(comment *github.PullRequestComment) review.Comment {
			return review.Comment{
				ID:   comment.GetID(),
				Path: comment.GetPath(),
				Line: comment.GetLine(),
				Body: comment.GetBody(),
			}
		})...)
		return len(comments), nil
	}
	if err := walkPaginatedApi(listComments); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(gh.infoBuffer, "Fetched %d review comments\n", len(allComments))
	return allComments, nil
}

func (gh *GHClient) ListIssueComments() ([]review.Comment, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	allComments := make([]review.Comment, 0)
	listComments := func(page int) (int, error) {
		listOptions := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage, Page: page}}
		comments, res, err := gh.client.Issues.ListComments(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return 0, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allComments = append(allComments, f.Map(comments, func(comment *github.IssueComment) review.Comment {
			return review.Comment{
				ID:   comment.GetID(),
				Body: comment.GetBody(),
			}
		})...)
		return len(comments), nil
	}
	if err := walkPaginatedApi(listComments); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(gh.infoBuffer, "Fetched %d issue comments\n", len(allComments))
	return allComments, nil
}

func (gh *GHClient) CreateReviewComment(path string, line int, body string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	comment := &github.PullRequestComment{
		Body:     github.String(body),
		Path:     github.String(path),
		Line:     github.Int(line),
		Side:     github.String("RIGHT"),
		CommitID: github.String(gh.pr.GetHead().GetSHA()),
	}
	_, res, err := gh.client.PullRequests.CreateComment(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), comment)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) UpdateReviewComment(commentID int64, body string) error {
	comment := &github.PullRequestComment{
		Body: github.String(body),
	}
	_, res, err := gh.client.PullRequests.EditComment(gh.ctx, gh.owner, gh.repo, commentID, comment)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) DeleteReviewComment(commentID int64) error {
	res, err := gh.client.PullRequests.DeleteComment(gh.ctx, gh.owner, gh.repo, commentID)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) CreateIssueComment(body string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	comment := &github.IssueComment{
		Body: github.String(body),
	}
	_, res, err := gh.client.Issues.CreateComment(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), comment)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) UpdateIssueComment(commentID int64, body string) error {
	comment := &github.IssueComment{
		Body: github.String(body),
	}
	_, res, err := gh.client.Issues.EditComment(gh.ctx, gh.owner, gh.repo, commentID, comment)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) DeleteIssueComment(commentID int64) error {
	res, err := gh.client.Issues.DeleteComment(gh.ctx, gh.owner, gh.repo, commentID)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

// IsDiffRejection reports whether a review comment creation failed because
// GitHub considers the target line outside the pull request diff. This is
// the one API failure the caller recovers from, by folding the offense into
// the aggregate comment.
func IsDiffRejection(err error) bool {
	var errRes *github.ErrorResponse
	if !errors.As(err, &errRes) {
		return false
	}
	if errRes.Response == nil || errRes.Response.StatusCode != 422 {
		return false
	}
	for _, e := range errRes.Errors {
		if strings.Contains(strings.ToLower(e.Message), "part of the diff") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(errRes.Message), "part of the diff")
}

// walkPaginatedApi exhausts a paginated listing. Termination is keyed on a
// short page, never on a total-count field.
func walkPaginatedApi(apiCall func(int) (int, error)) error {
	page := 1
	for {
		count, err := apiCall(page)
		if err != nil {
			return err
		}
		if count < perPage {
			break
		}
		page++
	}
	return nil
}
