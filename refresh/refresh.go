package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"colab-catalog/catalog"
)

// StarSource reports the current star count of a repository.
type StarSource interface {
	Stars(ctx context.Context, owner, name string) (int64, error)
}

// GitHubSource fetches star counts from the GitHub API.
type GitHubSource struct {
	client *github.Client
}

// NewGitHubSource creates a GitHub-backed star source. An empty token
// makes unauthenticated requests, which carry a much lower rate limit.
func NewGitHubSource(ctx context.Context, token string) *GitHubSource {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return &GitHubSource{client: github.NewClient(httpClient)}
}

// Stars returns the repository's current stargazer count.
func (s *GitHubSource) Stars(ctx context.Context, owner, name string) (int64, error) {
	repo, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return 0, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}
	return int64(repo.GetStargazersCount()), nil
}

// Updater refreshes the star metrics embedded in the collection files.
type Updater struct {
	source StarSource
}

// NewUpdater creates an Updater backed by the given star source.
func NewUpdater(source StarSource) *Updater {
	return &Updater{source: source}
}

// UpdateFile refreshes every git link's star count in one collection
// file and writes the file back atomically. Each repository is fetched
// once per run. A repository that cannot be resolved keeps its previous
// count, so a flaky API never erases data. Returns how many link
// metrics changed.
func (u *Updater) UpdateFile(ctx context.Context, path string) (int, error) {
	projects, err := catalog.LoadProjects(path)
	if err != nil {
		return 0, fmt.Errorf("load projects: %w", err)
	}

	fetched := make(map[string]int64)
	failed := make(map[string]bool)
	updated := 0

	for pi := range projects {
		for li := range projects[pi].Links {
			link := &projects[pi].Links[li]
			if link.Kind != "git" {
				continue
			}

			key, err := catalog.RepoKey(link.URL)
			if err != nil {
				slog.Warn("skipping malformed repository url", "project", projects[pi].Name, "url", link.URL, "error", err)
				continue
			}
			if failed[key] {
				continue
			}

			stars, ok := fetched[key]
			if !ok {
				stars, err = u.fetchStars(ctx, key)
				if err != nil {
					slog.Warn("keeping previous star count", "repo", key, "error", err)
					failed[key] = true
					continue
				}
				fetched[key] = stars
			}

			if !link.HasMetric || link.Metric != stars {
				updated++
			}
			link.Metric = stars
			link.HasMetric = true
		}
	}

	if err := catalog.WriteProjects(path, projects); err != nil {
		return 0, fmt.Errorf("write projects: %w", err)
	}

	slog.Info("refreshed star counts", "file", path, "repos", len(fetched), "updated_links", updated)
	return updated, nil
}

func (u *Updater) fetchStars(ctx context.Context, key string) (int64, error) {
	parsed, err := url.Parse(key)
	if err != nil {
		return 0, err
	}
	if parsed.Host != "github.com" {
		return 0, fmt.Errorf("no star source for host %q", parsed.Host)
	}

	owner, name, found := strings.Cut(catalog.RepoSlug(key), "/")
	if !found {
		return 0, fmt.Errorf("no owner in repository key %q", key)
	}
	return u.source.Stars(ctx, owner, name)
}
