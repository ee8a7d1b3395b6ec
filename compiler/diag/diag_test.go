package diag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnings(t *testing.T) {
	var ws Warnings

	ws.Warn(context.Background(), UnusedLabel, Pos{File: "a.k27s", Line: 4}, "label %q is never referenced", "x")
	ws.Warn(context.Background(), RepeatedInclusion, Pos{}, "not re-including")

	require.Equal(t, 2, ws.Len())

	u := ws.Of(UnusedLabel)
	require.Len(t, u, 1)
	assert.Equal(t, `a.k27s:4: warning: unused label: label "x" is never referenced`, u[0].String())

	assert.Equal(t, "warning: repeated inclusion: not re-including", ws.List[1].String())

	var nilws *Warnings
	assert.Equal(t, 0, nilws.Len())
	assert.Nil(t, nilws.Of(UnusedLabel))
}

func TestPos(t *testing.T) {
	assert.Equal(t, "line 3", Pos{Line: 3}.String())
	assert.Equal(t, "lib.k27s:3", Pos{File: "lib.k27s", Line: 3}.String())
}
