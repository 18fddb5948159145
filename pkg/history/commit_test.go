package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

type fakeCommit struct {
	id      string
	message string
	author  gitaccess.Signature
	parents int
}

func (c *fakeCommit) ID() string { return c.id }
func (c *fakeCommit) Message() string { return c.message }
func (c *fakeCommit) Author() gitaccess.Signature { return c.author }
func (c *fakeCommit) ParentCount() int { return c.parents }
func (c *fakeCommit) Free() {}

func TestNormalizeCommit(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.FixedZone("", -5*60*60))

	record := NormalizeCommit(&fakeCommit{
		id:      "0123456789abcdef0123456789abcdef01234567",
		message: "Fix bug\n\nLonger body.\n",
		author:  gitaccess.Signature{Name: "Ada", Email: "ada@example.com", When: when},
	})

	assert.Equal(t, CommitRecord{
		SHA:       "0123456789abcdef0123456789abcdef01234567",
		Message:   "Fix bug\n\nLonger body.\n",
		Author:    "Ada",
		Email:     "ada@example.com",
		Timestamp: "2024-01-15T15:30:00+00:00",
	}, record)
}

func TestNormalizeCommitDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		author gitaccess.Signature
		want   [2]string
	}{
		{"missing", gitaccess.Signature{}, [2]string{UnknownAuthor, UnknownEmail}},
		{"invalid utf8", gitaccess.Signature{Name: "\xff\xfe", Email: "x@y"}, [2]string{UnknownAuthor, "x@y"}},
		{"email only", gitaccess.Signature{Email: "a@b"}, [2]string{UnknownAuthor, "a@b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := NormalizeCommit(&fakeCommit{id: "abcd", author: tt.author})
			assert.Equal(t, tt.want[0], record.Author)
			assert.Equal(t, tt.want[1], record.Email)
		})
	}
}

func TestNormalizeCommitMessageNotUTF8(t *testing.T) {
	t.Parallel()

	record := NormalizeCommit(&fakeCommit{
		id:      "abcd",
		message: "Latin-1 caf\xe9\n",
		author:  gitaccess.Signature{Name: "Ada", Email: "ada@example.com"},
	})

	assert.Empty(t, record.Message)
	assert.Equal(t, "Ada", record.Author)

	record = NormalizeCommit(&fakeCommit{id: "abcd", message: "caf\u00e9\n"})
	assert.Equal(t, "caf\u00e9\n", record.Message)
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1970-01-01T00:00:00+00:00", FormatTimestamp(time.Unix(0, 0)))
	assert.Equal(t, "2024-03-01T10:00:00+00:00",
		FormatTimestamp(time.Date(2024, time.March, 1, 12, 0, 0, 999, time.FixedZone("CEST", 2*60*60))))
	assert.Equal(t, "1970-01-01T00:00:00+00:00",
		FormatTimestamp(time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)))
}
