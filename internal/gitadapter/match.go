package gitadapter

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchGlob reports whether branch matches pattern using doublestar glob
// semantics (e.g. "release/*", "feature/**"). Used for
// git.disabled_branches and git.exclude_branches.
func MatchGlob(pattern, branch string) bool {
	ok, err := doublestar.Match(pattern, branch)
	if err != nil {
		return false
	}
	return ok
}

// MatchRegex reports whether branch matches the regular expression
// pattern. Used for git.auto_create_branch_filter. An invalid pattern
// never matches rather than panicking.
func MatchRegex(pattern, branch string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(branch)
}
