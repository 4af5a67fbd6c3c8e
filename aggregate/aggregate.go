package aggregate

import (
	"log/slog"

	"colab-catalog/catalog"
)

// Paper is the best-known citation count for a doi link, together with
// the project that contributed it.
type Paper struct {
	Project string
	Count   int64
}

// Result holds the global counters produced by one pass over the
// project collections.
type Result struct {
	// Authors counts projects per author, one count per occurrence in a
	// project's author list.
	Authors map[catalog.Author]int
	// GroupSizes is the author-list length of every project, in input
	// order.
	GroupSizes []int
	// Stars maps canonical repository keys to star counts. When the
	// same repository appears under several projects the highest count
	// wins.
	Stars map[string]int64
	// Papers maps doi URLs to their highest citation count across
	// projects.
	Papers map[string]Paper
	// ProjectCitations maps project names to the doi link each project
	// contributed.
	ProjectCitations map[string]catalog.CitationRecord
	// Packages lists package names from registry links, deduplicated,
	// in first-seen order.
	Packages []string
}

// Aggregate flattens per-project author and link lists into global
// counters. Each project contributes at most one git metric and one doi
// metric: the first link of each kind that carries a metric and, for
// git, canonicalizes cleanly. Malformed repository URLs are skipped
// with a warning rather than failing the run.
func Aggregate(projects []catalog.Project) Result {
	res := Result{
		Authors:          make(map[catalog.Author]int),
		Stars:            make(map[string]int64),
		Papers:           make(map[string]Paper),
		ProjectCitations: make(map[string]catalog.CitationRecord),
	}

	seenPackages := make(map[string]bool)

	for _, project := range projects {
		for _, author := range project.Authors {
			res.Authors[author]++
		}
		res.GroupSizes = append(res.GroupSizes, len(project.Authors))

		gitCaptured, doiCaptured := false, false
		for _, link := range project.Links {
			switch link.Kind {
			case "git":
				if gitCaptured {
					continue
				}
				if !link.HasMetric {
					slog.Warn("git link has no star count", "project", project.Name, "url", link.URL)
					continue
				}
				key, err := catalog.RepoKey(link.URL)
				if err != nil {
					slog.Warn("skipping malformed repository url", "project", project.Name, "url", link.URL, "error", err)
					continue
				}
				if cur, ok := res.Stars[key]; !ok || link.Metric > cur {
					res.Stars[key] = link.Metric
				}
				gitCaptured = true

			case "doi":
				if doiCaptured {
					continue
				}
				if !link.HasMetric {
					slog.Warn("doi link has no citation count", "project", project.Name, "url", link.URL)
					continue
				}
				if best, ok := res.Papers[link.URL]; !ok || link.Metric > best.Count {
					res.Papers[link.URL] = Paper{Project: project.Name, Count: link.Metric}
				}
				res.ProjectCitations[project.Name] = catalog.CitationRecord{DOI: link.URL, Count: link.Metric}
				doiCaptured = true

			case "pypi":
				name, ok := catalog.PackageName(link.URL)
				if !ok {
					slog.Warn("skipping unparseable package url", "project", project.Name, "url", link.URL)
					continue
				}
				if !seenPackages[name] {
					seenPackages[name] = true
					res.Packages = append(res.Packages, name)
				}
			}
		}
	}

	return res
}
