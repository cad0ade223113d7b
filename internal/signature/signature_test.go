package signature

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtendIsDeterministic(t *testing.T) {
	params := map[string]map[string]string{
		"generator_params": {"n": "1", "mode": "fast"},
		"build_params":     {"debug": "false"},
	}
	a := Extend("sig_A", params)
	b := Extend("sig_A", params)
	require.Equal(t, a, b)
	require.True(t, len(a) > len("sig_A_"))
}

func TestExtendInsensitiveToMapIterationOrder(t *testing.T) {
	p1 := map[string]map[string]string{
		"generator_params": {"a": "1", "b": "2", "c": "3"},
	}
	p2 := map[string]map[string]string{
		"generator_params": {"c": "3", "a": "1", "b": "2"},
	}
	require.Equal(t, Extend("base", p1), Extend("base", p2))
}

func TestExtendDifferentParamsYieldDifferentSignature(t *testing.T) {
	p1 := map[string]map[string]string{"build_params": {"debug": "true"}}
	p2 := map[string]map[string]string{"build_params": {"debug": "false"}}
	require.NotEqual(t, Extend("base", p1), Extend("base", p2))
}

func TestExtendPreservesBasePrefix(t *testing.T) {
	sig := Extend("sig_B", map[string]map[string]string{"x": {"y": "z"}})
	require.Contains(t, sig, "sig_B_")
}

func TestFlattenJoinsTuplesWithUnprintableSeparator(t *testing.T) {
	flat := Flatten(nil, map[string][]string{"include_dirs": {"a", "b"}}, nil)
	require.Equal(t, "a\x01b", flat["include_dirs"])
}
