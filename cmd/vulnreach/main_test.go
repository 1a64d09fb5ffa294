package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrWithCodeCarriesExitStatus(t *testing.T) {
	err := errWithCode(nil, exitReachableVuln)

	var cErr *codedError
	require.True(t, errors.As(err, &cErr), "exit code lost: reachable vulnerability would exit %d", exitError)
	require.Equal(t, exitReachableVuln, cErr.code)
	require.Empty(t, cErr.Error())
}

func TestErrWithCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("analyze: %w", errWithCode(errors.New("boom"), exitError))

	var cErr *codedError
	require.True(t, errors.As(err, &cErr))
	require.Equal(t, exitError, cErr.code)
}

func TestParseVulnSpecs(t *testing.T) {
	vulns, err := parseVulnSpecs([]string{
		"lodash@4.17.0=template, merge",
		"requests",
	})
	require.NoError(t, err)
	require.Len(t, vulns, 2)

	require.Equal(t, "lodash", vulns[0].Package)
	require.Equal(t, "4.17.0", vulns[0].Version)
	require.Equal(t, []string{"template", "merge"}, vulns[0].Functions)

	require.Equal(t, "requests", vulns[1].Package)
	require.Empty(t, vulns[1].Version)
	require.Empty(t, vulns[1].Functions)

	_, err = parseVulnSpecs([]string{"@1.0=f"})
	require.Error(t, err, "empty package name")
}
