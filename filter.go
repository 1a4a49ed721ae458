// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/pathrules"
)

// SelectOptions configures SelectEntries matching behavior.
type SelectOptions struct {
	// MatcherOptions control glob pattern matching; zero value enables
	// case-insensitive matching with exclude-by-default semantics.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
}

// applyDefaults fills zero-valued select options with defaults.
func (opts *SelectOptions) applyDefaults() {
	if opts.MatcherOptions == (pathrules.MatcherOptions{}) {
		opts.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// SelectEntries filters a parsed entry list by mixed selectors: a selector
// that parses as an unsigned integer matches the entry with that ID, any
// other selector is treated as a glob pattern against entry names. Result
// preserves entry list order; an empty selector list selects everything.
func SelectEntries(entries []EntryInfo, selectors []string, opts SelectOptions) ([]EntryInfo, error) {
	if len(selectors) == 0 {
		out := make([]EntryInfo, len(entries))
		copy(out, entries)
		return out, nil
	}

	opts.applyDefaults()

	ids := make(map[uint32]struct{})
	rules := make([]pathrules.Rule, 0, len(selectors))
	for _, selector := range selectors {
		selector = strings.TrimSpace(selector)
		if selector == "" {
			continue
		}

		if id, err := strconv.ParseUint(selector, 10, 32); err == nil {
			ids[uint32(id)] = struct{}{}
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: selector,
		})
	}

	matcher, err := newSelectMatcher(rules, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if _, ok := ids[entry.ID]; ok {
			out = append(out, entry)
			continue
		}

		if matcher != nil && matcher.Included(entry.Name, false) {
			out = append(out, entry)
		}
	}

	return out, nil
}

// newSelectMatcher compiles glob selection rules; nil when no rules given.
func newSelectMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*pathrules.Matcher, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelectPattern, err)
	}

	return matcher, nil
}

// SelectEntries filters the reader's parsed entry list by mixed selectors.
func (r *Reader) SelectEntries(selectors []string, opts SelectOptions) ([]EntryInfo, error) {
	if r == nil {
		return nil, ErrNilReader
	}

	return SelectEntries(r.entries, selectors, opts)
}
