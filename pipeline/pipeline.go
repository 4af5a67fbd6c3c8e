package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"colab-catalog/aggregate"
	"colab-catalog/catalog"
	"colab-catalog/downloads"
	"colab-catalog/rank"
	"colab-catalog/render"
)

// StatsSource provides download statistics for a package.
type StatsSource interface {
	Fetch(ctx context.Context, pkg string) (downloads.Stats, error)
}

// Renderer formats ranked catalog data into the output document.
type Renderer interface {
	Document(d render.Data) string
}

// Runner executes one generation pass: load the collections and
// snapshots, aggregate, rank, render, and write the document.
type Runner struct {
	renderer      Renderer
	stats         StatsSource
	researchPath  string
	tutorialsPath string
	starsPath     string
	citationsPath string
	outputPath    string
	topK          int
}

// Option configures a Runner.
type Option func(*Runner)

// WithDataDir points the runner at a directory with the standard data
// file layout: research.json, tutorials.json, stars.json,
// citations.json.
func WithDataDir(dir string) Option {
	return func(r *Runner) {
		r.researchPath = filepath.Join(dir, "research.json")
		r.tutorialsPath = filepath.Join(dir, "tutorials.json")
		r.starsPath = filepath.Join(dir, "stars.json")
		r.citationsPath = filepath.Join(dir, "citations.json")
	}
}

// WithOutputPath sets where the rendered document is written.
func WithOutputPath(path string) Option {
	return func(r *Runner) {
		r.outputPath = path
	}
}

// WithTopK sets the requested ranking cutoff.
func WithTopK(k int) Option {
	return func(r *Runner) {
		r.topK = k
	}
}

// WithStats sets the download statistics source. Without one, package
// rankings are left empty.
func WithStats(stats StatsSource) Option {
	return func(r *Runner) {
		r.stats = stats
	}
}

// NewRunner creates a generation runner.
func NewRunner(renderer Renderer, opts ...Option) *Runner {
	r := &Runner{
		renderer:   renderer,
		outputPath: "./README.md",
		topK:       20,
	}
	WithDataDir("./data")(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full generation pass.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("starting generation run", "top_k", r.topK, "output", r.outputPath)

	// Step 1: Load collections and snapshots
	research, err := catalog.LoadProjects(r.researchPath)
	if err != nil {
		return fmt.Errorf("load research collection: %w", err)
	}
	tutorials, err := catalog.LoadProjects(r.tutorialsPath)
	if err != nil {
		return fmt.Errorf("load tutorials collection: %w", err)
	}
	prevStars, err := catalog.LoadStars(r.starsPath)
	if err != nil {
		return fmt.Errorf("load stars snapshot: %w", err)
	}
	prevCitations, err := catalog.LoadCitations(r.citationsPath)
	if err != nil {
		return fmt.Errorf("load citations snapshot: %w", err)
	}
	slog.Info("loaded collections", "research", len(research), "tutorials", len(tutorials))

	// Step 2: Aggregate
	combined := make([]catalog.Project, 0, len(research)+len(tutorials))
	combined = append(combined, research...)
	combined = append(combined, tutorials...)
	agg := aggregate.Aggregate(combined)
	slog.Info("aggregated catalog",
		"authors", len(agg.Authors),
		"repos", len(agg.Stars),
		"papers", len(agg.Papers),
		"packages", len(agg.Packages))

	// Step 3: Rank authors; the tie-expanded cutoff carries over to the
	// remaining rankings so all lists stay consistent.
	authorRanking := rank.TopAuthors(agg.Authors, r.topK)
	k := authorRanking.EffectiveK
	visible := rank.VisibleCount(agg.GroupSizes)
	slog.Info("ranked authors", "requested_k", r.topK, "effective_k", k, "visible_authors", visible)

	// Step 4: Trend scores against the previous snapshots
	trendingRepos := rank.Trending(agg.Stars, prevStars, k)

	nameCounts := make(map[string]int64, len(agg.ProjectCitations))
	for name, rec := range agg.ProjectCitations {
		nameCounts[name] = rec.Count
	}
	prevNameCounts := make(map[string]int64, len(prevCitations))
	for name, rec := range prevCitations {
		prevNameCounts[name] = rec.Count
	}
	trendingPapers := rank.Trending(nameCounts, prevNameCounts, k)

	// Step 5: Download statistics, one package at a time; a package the
	// service cannot answer for is dropped, not fatal.
	trendingPackages, topPackages := r.rankPackages(ctx, agg.Packages, k)

	// Step 6: All-time rankings
	topRepos := rank.Top(agg.Stars, k)

	paperCounts := make(map[string]int64, len(agg.Papers))
	for doi, paper := range agg.Papers {
		paperCounts[doi] = paper.Count
	}
	topPapers := rank.Top(paperCounts, k)

	// Step 7: Render and write
	data := render.Data{
		Research:         research,
		Tutorials:        tutorials,
		VisibleAuthors:   visible,
		TrendingRepos:    repoItems(trendingRepos),
		TrendingPapers:   paperItemsByName(trendingPapers, agg.ProjectCitations),
		TrendingPackages: packageItems(trendingPackages),
		TopAuthors:       authorItems(authorRanking.Authors),
		TopRepos:         repoItemsFromEntries(topRepos),
		TopPapers:        paperItemsByDOI(topPapers, agg.Papers),
		TopPackages:      packageItems(topPackages),
	}

	doc := r.renderer.Document(data)
	if err := render.WriteFile(r.outputPath, doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	slog.Info("generation run complete", "output", r.outputPath, "bytes", len(doc))
	return nil
}

// Snapshot aggregates the current collections and writes them out as
// the new stars and citations snapshots.
func (r *Runner) Snapshot(ctx context.Context) error {
	research, err := catalog.LoadProjects(r.researchPath)
	if err != nil {
		return fmt.Errorf("load research collection: %w", err)
	}
	tutorials, err := catalog.LoadProjects(r.tutorialsPath)
	if err != nil {
		return fmt.Errorf("load tutorials collection: %w", err)
	}

	combined := make([]catalog.Project, 0, len(research)+len(tutorials))
	combined = append(combined, research...)
	combined = append(combined, tutorials...)
	agg := aggregate.Aggregate(combined)

	if err := catalog.WriteStars(r.starsPath, agg.Stars); err != nil {
		return fmt.Errorf("write stars snapshot: %w", err)
	}
	if err := catalog.WriteCitations(r.citationsPath, agg.ProjectCitations); err != nil {
		return fmt.Errorf("write citations snapshot: %w", err)
	}

	slog.Info("snapshots written", "repos", len(agg.Stars), "papers", len(agg.ProjectCitations))
	return nil
}

// rankPackages fetches download statistics and produces the trending
// and all-time package rankings.
func (r *Runner) rankPackages(ctx context.Context, packages []string, k int) (trending, top []string) {
	if r.stats == nil || len(packages) == 0 {
		return nil, nil
	}

	trendScores := make(map[string]float64)
	totals := make(map[string]int64)
	for _, pkg := range packages {
		stats, err := r.stats.Fetch(ctx, pkg)
		if err != nil {
			slog.Warn("skipping package without stats", "package", pkg, "error", err)
			continue
		}
		trendScores[pkg] = rank.DownloadTrend(stats.LastMonth, stats.Total)
		totals[pkg] = stats.Total
	}
	slog.Info("fetched package stats", "requested", len(packages), "resolved", len(totals))

	topEntries := rank.Top(totals, k)
	top = make([]string, len(topEntries))
	for i, e := range topEntries {
		top[i] = e.Key
	}
	return rank.TopByScore(trendScores, k), top
}

func repoItems(keys []string) []render.RepoItem {
	items := make([]render.RepoItem, len(keys))
	for i, key := range keys {
		items[i] = render.RepoItem{Key: key}
	}
	return items
}

func repoItemsFromEntries(entries []rank.Entry) []render.RepoItem {
	items := make([]render.RepoItem, len(entries))
	for i, e := range entries {
		items[i] = render.RepoItem{Key: e.Key}
	}
	return items
}

func paperItemsByName(names []string, citations map[string]catalog.CitationRecord) []render.PaperItem {
	items := make([]render.PaperItem, len(names))
	for i, name := range names {
		items[i] = render.PaperItem{Name: name, DOI: citations[name].DOI}
	}
	return items
}

func paperItemsByDOI(entries []rank.Entry, papers map[string]aggregate.Paper) []render.PaperItem {
	items := make([]render.PaperItem, len(entries))
	for i, e := range entries {
		items[i] = render.PaperItem{Name: papers[e.Key].Project, DOI: e.Key}
	}
	return items
}

func packageItems(names []string) []render.PackageItem {
	items := make([]render.PackageItem, len(names))
	for i, name := range names {
		items[i] = render.PackageItem{Name: name}
	}
	return items
}

func authorItems(authors []rank.AuthorCount) []render.AuthorItem {
	items := make([]render.AuthorItem, len(authors))
	for i, a := range authors {
		items[i] = render.AuthorItem{Name: a.Author.Name, URL: a.Author.URL}
	}
	return items
}
