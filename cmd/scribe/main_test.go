package main

import (
	"errors"
	"testing"

	"github.com/airenas/scribe/internal/pkg/cli"
	"github.com/stretchr/testify/require"
)

func TestShouldPrintUsageHint(t *testing.T) {
	t.Parallel()

	require.True(t, shouldPrintUsageHint(errors.New("unknown command \"bad\" for \"scribe\"")))
	require.True(t, shouldPrintUsageHint(errors.New("unknown flag: --oops")))
	require.True(t, shouldPrintUsageHint(errors.New("accepts 1 arg(s), received 0")))
	require.True(t, shouldPrintUsageHint(errors.New("invalid argument \"x\" for \"--duration\" flag")))
	require.False(t, shouldPrintUsageHint(errors.New("transcription failed: bad audio")))
	require.False(t, shouldPrintUsageHint(nil))
}

func TestHelpHintTarget(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCmd()
	require.Equal(t, "scribe", helpHintTarget(root, []string{"--badflag"}))
	require.Equal(t, "scribe", helpHintTarget(root, []string{"badcmd"}))
	require.Equal(t, "scribe record", helpHintTarget(root, []string{"record"}))
	require.Equal(t, "scribe upload", helpHintTarget(root, []string{"upload", "--title", "x"}))
	require.Equal(t, "scribe", helpHintTarget(nil, nil))
}
