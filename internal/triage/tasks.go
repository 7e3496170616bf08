package triage

import (
	"strings"
	"unicode"
)

// ExtractTasks returns the request of every "please <do something>" phrase
// in the email, in the order they appear: "please call John." becomes
// "Call John". A request runs up to the next sentence terminator and may
// span line breaks. Duplicates are kept.
//
// The word right after "please" must start lower-case, so "Please Review
// the doc" yields nothing.
func ExtractTasks(email string) []string {
	var tasks []string
	for _, m := range taskRE.FindAllStringSubmatch(email, -1) {
		task := strings.TrimSpace(m[1])
		task = strings.TrimRightFunc(task, func(r rune) bool {
			return unicode.IsSpace(r) || r == '.'
		})
		if task == "" {
			continue
		}
		tasks = append(tasks, capitalize(task))
	}
	return tasks
}
