package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"colab-catalog/catalog"
)

// AuthorItem is one ranked author for the best-of table.
type AuthorItem struct {
	Name string
	URL  string
}

// RepoItem is one ranked repository, identified by its canonical key.
type RepoItem struct {
	Key string
}

// PaperItem is one ranked paper: the project name and its doi link.
type PaperItem struct {
	Name string
	DOI  string
}

// PackageItem is one ranked package.
type PackageItem struct {
	Name string
}

// Data carries everything the document is rendered from: the raw
// project collections plus the pre-ranked sequences.
type Data struct {
	Research         []catalog.Project
	Tutorials        []catalog.Project
	VisibleAuthors   int
	TrendingRepos    []RepoItem
	TrendingPapers   []PaperItem
	TrendingPackages []PackageItem
	TopAuthors       []AuthorItem
	TopRepos         []RepoItem
	TopPapers        []PaperItem
	TopPackages      []PackageItem
}

// Config holds the site-level settings the document is parameterized
// by.
type Config struct {
	// Title is the document's top-level heading.
	Title string
	// RepoSlug is the owner/name of the repository hosting the
	// rendered document, used by the header and footer badges.
	RepoSlug string
	// Badges lists the link kinds that have an icon under images/.
	Badges []string
	// ResearchPath and TutorialsPath are the repository-relative data
	// file paths the footer links to.
	ResearchPath  string
	TutorialsPath string
}

// Renderer formats ranked catalog data into the final Markdown
// document.
type Renderer struct {
	title         string
	repoSlug      string
	badges        map[string]bool
	researchPath  string
	tutorialsPath string
}

// New creates a Renderer from site configuration.
func New(cfg Config) *Renderer {
	badges := make(map[string]bool, len(cfg.Badges))
	for _, b := range cfg.Badges {
		badges[b] = true
	}
	return &Renderer{
		title:         cfg.Title,
		repoSlug:      cfg.RepoSlug,
		badges:        badges,
		researchPath:  cfg.ResearchPath,
		tutorialsPath: cfg.TutorialsPath,
	}
}

// Document renders the complete Markdown document.
func (r *Renderer) Document(d Data) string {
	lines := []string{
		fmt.Sprintf("[![Hits](https://hits.seeyoufarm.com/api/count/incr/badge.svg?url=https://github.com/%s)](https://hits.seeyoufarm.com)", r.repoSlug),
		fmt.Sprintf("![%s](https://count.getloli.com/get/@%s?theme=rule34)", r.repoName(), r.repoName()),
		fmt.Sprintf("\nThe page might not be rendered properly. Please open [README.md](https://github.com/%s/blob/main/README.md) file directly", r.repoSlug),
		"# " + r.title,
		"## Trending",
	}
	lines = append(lines, r.trendingTable(d)...)
	lines = append(lines, "## Research")
	lines = append(lines, r.projectTable(d.Research, d.VisibleAuthors)...)
	lines = append(lines, "## Tutorials")
	lines = append(lines, r.projectTable(d.Tutorials, d.VisibleAuthors)...)
	lines = append(lines, "# Best of the best")
	lines = append(lines, r.bestTable(d)...)
	lines = append(lines,
		fmt.Sprintf("\n[![Stargazers over time](https://starchart.cc/%s.svg)](https://starchart.cc/%s)", r.repoSlug, r.repoSlug),
		fmt.Sprintf("\n(generated by colab-catalog based on [%s](%s) and [%s](%s))", baseName(r.researchPath), r.researchPath, baseName(r.tutorialsPath), r.tutorialsPath),
	)
	return strings.Join(lines, "\n")
}

func (r *Renderer) repoName() string {
	if idx := strings.LastIndex(r.repoSlug, "/"); idx >= 0 {
		return r.repoSlug[idx+1:]
	}
	return r.repoSlug
}

func baseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// trendingTable renders the repositories/papers/packages growth table.
// With nothing trending, only the header rows are emitted.
func (r *Renderer) trendingTable(d Data) []string {
	lines := []string{
		"| repositories | papers | packages |",
		"|---|---|---|",
	}
	repos := repoList(d.TrendingRepos)
	papers := paperList(d.TrendingPapers)
	packages := packageList(d.TrendingPackages)
	if repos == "" && papers == "" && packages == "" {
		return lines
	}
	return append(lines, fmt.Sprintf("| %s | %s | %s |", repos, papers, packages))
}

// bestTable renders the all-time volume table. With an empty catalog,
// only the header rows are emitted.
func (r *Renderer) bestTable(d Data) []string {
	lines := []string{
		"| authors | repositories | papers | packages |",
		"|---|---|---|---|",
	}
	authors := authorList(d.TopAuthors)
	repos := repoList(d.TopRepos)
	papers := paperList(d.TopPapers)
	packages := packageList(d.TopPackages)
	if authors == "" && repos == "" && papers == "" && packages == "" {
		return lines
	}
	return append(lines, fmt.Sprintf("| %s | %s | %s | %s |", authors, repos, papers, packages))
}

// projectTable renders one catalog section, most recently updated
// first.
func (r *Renderer) projectTable(projects []catalog.Project, visibleAuthors int) []string {
	sorted := make([]catalog.Project, len(projects))
	copy(sorted, projects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Updated > sorted[j].Updated
	})

	lines := []string{
		"| name | description | authors | links | colaboratory | update |",
		"|------|-------------|:--------|:------|:------------:|:------:|",
	}
	for _, p := range sorted {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s | %s | %s |",
			p.Name,
			p.Description,
			authorsCell(p.Authors, visibleAuthors),
			r.linksCell(p.Links),
			colabBadge(p.ColabURL),
			time.Unix(p.Updated, 0).UTC().Format("02.01.2006"),
		))
	}
	return lines
}

// authorsCell shows up to visible authors inline and collapses the rest
// behind a disclosure. A single author renders as a plain link, and a
// list short enough to avoid a real cut is shown in full.
func authorsCell(authors []catalog.Author, visible int) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) == 1 {
		return authorLink(authors[0])
	}
	if len(authors) <= visible+1 {
		return "<ul>" + joinAuthorItems(authors) + "</ul>"
	}
	return "<ul>" + joinAuthorItems(authors[:visible]) +
		"<details><summary>others</summary>" + joinAuthorItems(authors[visible:]) +
		"</ul></details>"
}

func authorLink(a catalog.Author) string {
	return fmt.Sprintf("[%s](%s)", a.Name, a.URL)
}

func joinAuthorItems(authors []catalog.Author) string {
	items := make([]string, len(authors))
	for i, a := range authors {
		items[i] = "<li>" + authorLink(a) + "</li>"
	}
	return strings.Join(items, " ")
}

// linksCell renders a project's link list: the citation and star badges
// first, then the remaining links grouped by kind.
func (r *Renderer) linksCell(links []catalog.Link) string {
	if len(links) == 0 {
		return ""
	}

	sorted := make([]catalog.Link, len(links))
	copy(sorted, links)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Kind < sorted[j].Kind
	})

	var kinds []string
	grouped := make(map[string][]string)
	for _, link := range sorted {
		if _, ok := grouped[link.Kind]; !ok {
			kinds = append(kinds, link.Kind)
		}
		grouped[link.Kind] = append(grouped[link.Kind], link.URL)
	}

	var line string
	if urls, ok := grouped["doi"]; ok {
		line += doiBadge(urls[0]) + " "
		delete(grouped, "doi")
		kinds = removeKind(kinds, "doi")
	}
	if urls, ok := grouped["git"]; ok {
		line += starBadge(urls[0]) + " "
		if len(urls) == 1 {
			delete(grouped, "git")
			kinds = removeKind(kinds, "git")
		} else {
			grouped["git"] = urls[1:]
		}
	}
	if len(kinds) == 0 {
		return line
	}

	var sb strings.Builder
	sb.WriteString(line)
	sb.WriteString("<ul>")
	for _, kind := range kinds {
		items := make([]string, len(grouped[kind]))
		for i, url := range grouped[kind] {
			items[i] = r.linkMarkup(kind, url)
		}
		sb.WriteString("<li>" + strings.Join(items, ", ") + "</li>")
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func removeKind(kinds []string, kind string) []string {
	out := kinds[:0]
	for _, k := range kinds {
		if k != kind {
			out = append(out, k)
		}
	}
	return out
}

// linkMarkup renders a single link, with an icon when the kind has one.
func (r *Renderer) linkMarkup(kind, url string) string {
	if r.badges[kind] {
		return fmt.Sprintf(`[<img src="images/%s.svg" alt="%s" height=20/>](%s)`, kind, kind, url)
	}
	return fmt.Sprintf("[%s](%s)", kind, url)
}

// colabBadge renders the notebook launch badge, or nothing when the
// project has no notebook.
func colabBadge(url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf("[![Open In Colab](images/colab.svg)](%s)", url)
}

// doiBadge renders a live citation-count badge for a doi link. A URL
// without a doi path falls back to a plain link.
func doiBadge(url string) string {
	_, doi, found := strings.Cut(url, "org/")
	if !found {
		return fmt.Sprintf("[doi](%s)", url)
	}
	return fmt.Sprintf("[![](https://api.juleskreuer.eu/citation-badge.php?doi=%s)](%s)", doi, url)
}

// starBadge renders a live star-count badge for a repository link.
func starBadge(url string) string {
	return fmt.Sprintf("[![](https://img.shields.io/github/stars/%s?style=social)](%s)", catalog.RepoSlug(url), url)
}

// pypiBadge renders a live monthly-downloads badge for a package.
func pypiBadge(name string) string {
	return fmt.Sprintf("[![](https://img.shields.io/pypi/dm/%s)](https://pypi.org/project/%s/)", name, name)
}

func authorList(authors []AuthorItem) string {
	if len(authors) == 0 {
		return ""
	}
	items := make([]string, len(authors))
	for i, a := range authors {
		items[i] = fmt.Sprintf("<li>[%s](%s)</li>", a.Name, a.URL)
	}
	return "<ul>" + strings.Join(items, " ") + "</ul>"
}

func repoList(repos []RepoItem) string {
	if len(repos) == 0 {
		return ""
	}
	items := make([]string, len(repos))
	for i, repo := range repos {
		items[i] = fmt.Sprintf("<li>%s\t%s</li>", catalog.RepoSlug(repo.Key), starBadge(repo.Key))
	}
	return "<ul>" + strings.Join(items, " ") + "</ul>"
}

func paperList(papers []PaperItem) string {
	if len(papers) == 0 {
		return ""
	}
	items := make([]string, len(papers))
	for i, paper := range papers {
		items[i] = fmt.Sprintf("<li>%s\t%s</li>", paper.Name, doiBadge(paper.DOI))
	}
	return "<ul>" + strings.Join(items, " ") + "</ul>"
}

func packageList(packages []PackageItem) string {
	if len(packages) == 0 {
		return ""
	}
	items := make([]string, len(packages))
	for i, pkg := range packages {
		items[i] = fmt.Sprintf("<li>%s\t%s</li>", pkg.Name, pypiBadge(pkg.Name))
	}
	return "<ul>" + strings.Join(items, " ") + "</ul>"
}
