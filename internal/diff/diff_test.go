package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHunksIdentical(t *testing.T) {
	text := "units lj\natom_style atomic\n"
	assert.Empty(t, Hunks(text, text))
	assert.Empty(t, Hunks("", ""))
}

func TestHunksFromEmpty(t *testing.T) {
	hunks := Hunks("", "a\nb\nc\n")

	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -0,0 +1,3 @@\n+a\n+b\n+c\n", hunks[0])
}

func TestHunksSingleChange(t *testing.T) {
	old := "1\n2\n3\n4\n5\n"
	updated := "1\n2\nthree\n4\n5\n"

	hunks := Hunks(old, updated)

	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -1,5 +1,5 @@\n 1\n 2\n-3\n+three\n 4\n 5\n", hunks[0])
}

func TestHunksSeparatedChanges(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 30; i++ {
		oldLines = append(oldLines, fmt.Sprintf("line %d", i))
		newLines = append(newLines, fmt.Sprintf("line %d", i))
	}
	newLines[2] = "changed early"
	newLines[25] = "changed late"

	hunks := Hunks(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")

	require.Len(t, hunks, 2)
	assert.True(t, strings.HasPrefix(hunks[0], "@@ -1,6 +1,6 @@\n"))
	assert.Contains(t, hunks[0], "+changed early\n")
	assert.Contains(t, hunks[1], "+changed late\n")

	indexed := Indexed(hunks)
	assert.Equal(t, hunks[1], indexed["1"])
}

func TestHunksMissingTrailingNewline(t *testing.T) {
	hunks := Hunks("a\n", "a\nb")

	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -1 +1,2 @@\n a\n+b\n\\ No newline at end of file\n", hunks[0])
}
