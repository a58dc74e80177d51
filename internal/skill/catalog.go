package skill

import (
	"slices"
	"strings"
)

var catalog = []Listing{
	{
		ID:             "desearch-web-search",
		Name:           "desearch-web-search",
		Description:    "Real-time internet search with customizable engines and structured extraction.",
		Category:       CategorySearch,
		Author:         "desearch",
		Version:        "2.1.0",
		Downloads:      15420,
		Rating:         4.8,
		Repository:     "clawhub/desearch-web-search",
		InstallCommand: "npx clawhub@latest install desearch-web-search",
	},
	{
		ID:             "ai-web-automation",
		Name:           "ai-web-automation",
		Description:    "Playwright-driven browser automation for multi-step tasks.",
		Category:       CategoryBrowser,
		Author:         "openclaw",
		Version:        "2.3.1",
		Downloads:      18760,
		Rating:         4.9,
		Repository:     "clawhub/ai-web-automation",
		InstallCommand: "npx clawhub@latest install ai-web-automation",
	},
	{
		ID:             "telegram-bot",
		Name:           "telegram-bot",
		Description:    "Telegram integration for messaging and command workflows.",
		Category:       CategoryCommunication,
		Author:         "openclaw",
		Version:        "2.1.0",
		Downloads:      21340,
		Rating:         4.8,
		Repository:     "clawhub/telegram-bot",
		InstallCommand: "clawhub install telegram-bot",
	},
	{
		ID:             "code-executor",
		Name:           "code-executor",
		Description:    "Sandboxed code execution for Python, JS, and shell snippets.",
		Category:       CategoryDevelopment,
		Author:         "openclaw",
		Version:        "1.7.0",
		Downloads:      15430,
		Rating:         4.7,
		Repository:     "clawhub/code-executor",
		InstallCommand: "clawhub install code-executor",
	},
	{
		ID:             "find-skills",
		Name:           "find-skills",
		Description:    "Finds and recommends skills for unknown tasks.",
		Category:       CategorySearch,
		Author:         "openclaw",
		Version:        "1.2.0",
		Downloads:      8930,
		Rating:         4.7,
		Repository:     "clawhub/find-skills",
		InstallCommand: "clawhub install find-skills",
	},
}

// Catalog returns the marketplace listings shipped with the application.
func Catalog() []Listing {
	return slices.Clone(catalog)
}

// LookupListing finds a catalog entry by id.
func LookupListing(id string) (Listing, bool) {
	i := slices.IndexFunc(catalog, func(l Listing) bool { return l.ID == id })
	if i < 0 {
		return Listing{}, false
	}
	return catalog[i], true
}

// CategoryAll disables category filtering in Search.
const CategoryAll = "all"

// Search returns the listings whose name or description contains term,
// ignoring case, and whose category matches. An empty category or "all"
// matches every category.
func Search(listings []Listing, term, category string) []Listing {
	term = strings.ToLower(term)
	var out []Listing
	for _, l := range listings {
		if category != "" && category != CategoryAll && string(l.Category) != category {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(l.Name), term) &&
			!strings.Contains(strings.ToLower(l.Description), term) {
			continue
		}
		out = append(out, l)
	}
	return out
}
