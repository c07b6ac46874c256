package gemini

import (
	"fmt"
	"time"
)

// Prompt asks for the current facts about t as a JSON object in the record
// shape of the data file.
func Prompt(t Tool, now time.Time) string {
	name := t.Name
	if name == "" {
		name = t.ID
	}
	by := ""
	if t.Company != "" {
		by = " by " + t.Company
	}
	return fmt.Sprintf(`Please provide the most current and accurate information about the AI tool %q%s as of %s.

Format your response as a JSON object with the following structure:
{
    "name": "Tool Name",
    "company": "Company Name",
    "category": %q,
    "description": "Brief description (2-3 sentences)",
    "longDescription": "Detailed description (4-6 sentences)",
    "coreFeatures": ["feature1", "feature2", "feature3", "feature4"],
    "uniqueSellingPoints": ["point1", "point2", "point3"],
    "pricing": "Pricing model (e.g., Free, $20/month, Freemium)",
    "apiAccess": true/false,
    "freeTrialAvailable": true/false,
    "platforms": ["Web", "Mobile", "Desktop", "API"],
    "languages": ["English", "Spanish", etc.],
    "useCases": ["use case 1", "use case 2", "use case 3"],
    "limitations": ["limitation 1", "limitation 2"],
    "officialWebsite": "https://...",
    "githubRepo": "https://github.com/..." (if available),
    "releaseDate": "YYYY-MM",
    "lastUpdated": %q,
    "popularity": {
        "trendingScore": 85 (1-100),
        "marketShare": 15 (percentage)
    }
}

Please ensure all information is current, accurate, and factual. If you're unsure about any specific detail, indicate it as "Not available" or provide your best estimate with a note.
`, name, by, now.Format("January 2006"), categoryOr(t.Category), now.Format(time.DateOnly))
}

func categoryOr(c string) string {
	if c == "" {
		return "Tool Category"
	}
	return c
}
