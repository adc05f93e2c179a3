package llm

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
)

// PromptLanguage resolves the BCP 47 locale tag a draft should be written in.
// Unparseable locales fall back to English rather than failing the job.
func PromptLanguage(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		return language.English
	}
	return tag
}

func languageName(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "id":
		return "Indonesian"
	case "de":
		return "German"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	case "pt":
		return "Portuguese"
	case "ja":
		return "Japanese"
	default:
		return "English"
	}
}

// ReflectionPrompt builds the weekly reflection prompt from the user's
// snippets and synced activity for the target week.
func ReflectionPrompt(user *domain.User, snippets []domain.Snippet, activity []string, weekStart, weekEnd time.Time, locale string) string {
	tag := PromptLanguage(locale)
	titler := cases.Title(tag)

	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise weekly work reflection for %s covering %s to %s.\n",
		displayName(user), weekStart.Format("Jan 2"), weekEnd.Format("Jan 2, 2006"))
	if user != nil && user.RoleTitle != "" {
		fmt.Fprintf(&b, "Their role: %s.\n", titler.String(user.RoleTitle))
	}
	fmt.Fprintf(&b, "Respond in %s.\n\n", languageName(tag))

	b.WriteString(titler.String("work notes") + ":\n")
	if len(snippets) == 0 {
		b.WriteString("- (no notes were logged this week)\n")
	}
	for _, s := range snippets {
		fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(s.Content))
	}

	if len(activity) > 0 {
		b.WriteString("\n" + titler.String("synced activity") + ":\n")
		for _, item := range activity {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(item))
		}
	}

	b.WriteString("\nStructure the reflection as: accomplishments, challenges, priorities for next week.")
	return b.String()
}

// CareerPlanPrompt builds the career plan prompt.
func CareerPlanPrompt(user *domain.User, snippets []domain.Snippet, horizonMonths int, focus, locale string) string {
	tag := PromptLanguage(locale)
	if horizonMonths <= 0 {
		horizonMonths = 12
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Draft a %d-month career development plan for %s.\n", horizonMonths, displayName(user))
	if user != nil && user.RoleTitle != "" {
		fmt.Fprintf(&b, "Current role: %s.\n", user.RoleTitle)
	}
	if focus != "" {
		fmt.Fprintf(&b, "Requested focus area: %s.\n", focus)
	}
	fmt.Fprintf(&b, "Respond in %s.\n\n", languageName(tag))
	appendSnippetContext(&b, snippets)
	b.WriteString("\nStructure the plan as: strengths, growth areas, quarterly milestones.")
	return b.String()
}

// AssessmentPrompt builds the performance assessment prompt over a multi-week
// snippet window.
func AssessmentPrompt(user *domain.User, snippets []domain.Snippet, weeks int, locale string) string {
	tag := PromptLanguage(locale)

	var b strings.Builder
	fmt.Fprintf(&b, "Write a performance self-assessment for %s based on the last %d weeks of work notes.\n",
		displayName(user), weeks)
	fmt.Fprintf(&b, "Respond in %s.\n\n", languageName(tag))
	appendSnippetContext(&b, snippets)
	b.WriteString("\nHighlight impact, collaboration, and growth with concrete examples from the notes.")
	return b.String()
}

func appendSnippetContext(b *strings.Builder, snippets []domain.Snippet) {
	b.WriteString("Work notes:\n")
	if len(snippets) == 0 {
		b.WriteString("- (no notes available)\n")
		return
	}
	for _, s := range snippets {
		fmt.Fprintf(b, "- [%d-W%02d] %s\n", s.ISOYear, s.ISOWeek, strings.TrimSpace(s.Content))
	}
}

func displayName(user *domain.User) string {
	if user == nil || strings.TrimSpace(user.DisplayName) == "" {
		return "the user"
	}
	return user.DisplayName
}
