package scenario

import (
	"time"

	"github.com/oddgames/ui-automation/pkg/finder"
)

// Default primitive timings.
const (
	DefaultSearchTime       = 10 * time.Second
	DefaultClickAnyTime     = 5 * time.Second
	DefaultWaitForTimeout   = 60 * time.Second
	DefaultDragDuration     = 500 * time.Millisecond
	DefaultSceneChangeTime  = 30 * time.Second
	SceneChangeRecentWindow = time.Second
	DefaultFramerateSample  = 2 * time.Second
	DefaultFramerateTimeout = 60 * time.Second
)

// Option adjusts a single primitive call.
type Option func(*options)

type options struct {
	optional     bool
	searchTime   time.Duration
	index        int
	repeat       int
	availability finder.Availability
	parent       string
	alternatives []string
}

// Optional makes a missing element a no-op instead of a failure.
func Optional() Option {
	return func(o *options) { o.optional = true }
}

// SearchTime bounds how long the element search may take.
func SearchTime(d time.Duration) Option {
	return func(o *options) { o.searchTime = d }
}

// Index picks the i-th match in enumeration order instead of the first
// unoccluded one.
func Index(i int) Option {
	return func(o *options) { o.index = i }
}

// Repeat runs the action n times.
func Repeat(n int) Option {
	return func(o *options) { o.repeat = n }
}

// Availability replaces the default availability predicate.
func Availability(a finder.Availability) Option {
	return func(o *options) { o.availability = a }
}

// Parent restricts matches to descendants of an element matching pattern.
func Parent(pattern string) Option {
	return func(o *options) { o.parent = pattern }
}

// Or adds patterns tried alongside the primary one.
func Or(patterns ...string) Option {
	return func(o *options) { o.alternatives = append(o.alternatives, patterns...) }
}

func collect(searchTime time.Duration, opts []Option) options {
	o := options{
		searchTime:   searchTime,
		availability: finder.DefaultAvailability,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) patterns(search string) []string {
	out := make([]string, 0, 1+len(o.alternatives))
	if search != "" {
		out = append(out, search)
	}
	return append(out, o.alternatives...)
}
