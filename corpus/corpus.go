// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package corpus

import (
	"strings"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/textproc"
)

// SearchText joins the searchable fields of a record with single spaces.
// Empty fields are skipped so no double spaces are produced.
func SearchText(r *core.Record) string {
	parts := make([]string, 0, 4)
	for _, field := range []string{r.OfficeName, r.District, r.State, r.Pincode} {
		if field = strings.TrimSpace(field); field != "" {
			parts = append(parts, field)
		}
	}
	return strings.Join(parts, " ")
}

// NormalizedSearchText returns the normalized form of SearchText.
func NormalizedSearchText(r *core.Record) string {
	return textproc.Normalize(SearchText(r))
}

// Build returns one normalized searchable text per record.
// Element i of the result always corresponds to records[i].
func Build(records []core.Record) []string {
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = NormalizedSearchText(&records[i])
	}
	return texts
}

// Corpus pairs the catalog records with their searchable texts, row for row.
type Corpus struct {
	Records []core.Record
	Texts   []string
}

// New builds a Corpus over records. The records slice is retained, not copied.
func New(records []core.Record) *Corpus {
	return &Corpus{
		Records: records,
		Texts:   Build(records),
	}
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	return len(c.Records)
}

// Target returns the text a query is compared against for literal token
// matching at row i.
func (c *Corpus) Target(i int) string {
	return c.Texts[i]
}
