package notice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/gitcopyright/notice"
	"go.jacobcolvin.com/gitcopyright/years"
)

func TestParseTemplateErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    error
		wantMsg string
	}{
		"unknown placeholder": {
			input:   "Copyright {years} {owner}",
			want:    notice.ErrUnknownPlaceholder,
			wantMsg: "{owner}",
		},
		"empty placeholder": {
			input:   "Copyright {years} {}",
			want:    notice.ErrUnknownPlaceholder,
			wantMsg: "{}",
		},
		"unterminated": {
			input: "Copyright {years",
			want:  notice.ErrInvalidTemplate,
		},
		"unmatched close": {
			input: "Copyright {years} }",
			want:  notice.ErrInvalidTemplate,
		},
		"empty": {
			input: "  \n",
			want:  notice.ErrInvalidTemplate,
		},
		"no year": {
			input: "Copyright Acme",
			want:  notice.ErrNoYearPlaceholder,
		},
		"escaped year only": {
			input: "Copyright {{years}} Acme",
			want:  notice.ErrNoYearPlaceholder,
		},
		"error on second line": {
			input:   "Copyright {years}\nLicense: {license}",
			want:    notice.ErrUnknownPlaceholder,
			wantMsg: "line 2",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := notice.ParseTemplate(tc.input)
			require.ErrorIs(t, err, tc.want)

			if tc.wantMsg != "" {
				assert.ErrorContains(t, err, tc.wantMsg)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		tmpl   string
		values notice.Values
		want   string
	}{
		"range": {
			tmpl:   "Copyright {years} Acme",
			values: notice.Values{Years: years.Range{Start: 2019, End: 2022}},
			want:   "Copyright 2019-2022 Acme",
		},
		"single year": {
			tmpl:   "Copyright {years} Acme",
			values: notice.Values{Years: years.Single(2021)},
			want:   "Copyright 2021 Acme",
		},
		"first and last": {
			tmpl:   "(c) {first_year}, {last_year}",
			values: notice.Values{Years: years.Range{Start: 2019, End: 2022}},
			want:   "(c) 2019, 2022",
		},
		"file and path": {
			tmpl:   "{file} ({path}) {years}",
			values: notice.Values{Path: "pkg/a/main.go", Years: years.Single(2020)},
			want:   "main.go (pkg/a/main.go) 2020",
		},
		"escaped braces": {
			tmpl:   "{{years}} {years} }}",
			values: notice.Values{Years: years.Single(2020)},
			want:   "{years} 2020 }",
		},
		"multi-line": {
			tmpl:   "Copyright {years} Acme\r\n\r\nSPDX-License-Identifier: MIT\n\n",
			values: notice.Values{Years: years.Single(2020)},
			want:   "Copyright 2020 Acme\n\nSPDX-License-Identifier: MIT",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := notice.ParseTemplate(tc.tmpl)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tmpl.Expand(tc.values))
		})
	}
}

func TestParseModes(t *testing.T) {
	t.Parallel()

	m, err := notice.ParseMatchMode("marker")
	require.NoError(t, err)
	assert.Equal(t, notice.MatchMarker, m)
	assert.Equal(t, "marker", m.String())

	m, err = notice.ParseMatchMode("template")
	require.NoError(t, err)
	assert.Equal(t, notice.MatchTemplate, m)

	var zero notice.MatchMode
	assert.Equal(t, notice.MatchMarker, zero)

	_, err = notice.ParseMatchMode("fuzzy")
	require.ErrorIs(t, err, notice.ErrUnknownMode)

	p, err := notice.ParseMultiPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, notice.MultiSkip, p)
	assert.Equal(t, "skip", p.String())

	_, err = notice.ParseMultiPolicy("last")
	require.ErrorIs(t, err, notice.ErrUnknownMode)
}
