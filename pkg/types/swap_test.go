package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenEqual(t *testing.T) {
	usdc := &Token{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC"}
	renamed := &Token{Address: usdc.Address, Symbol: "usdc-renamed"}

	require.True(t, usdc.Equal(renamed))
	require.False(t, usdc.Equal(NativeToken()))
	require.False(t, usdc.Equal(nil))
	require.True(t, NativeToken().IsNative())
}

func TestSwapIntentValidate(t *testing.T) {
	sol := NativeToken()
	usdc := &Token{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}

	require.NoError(t, SwapIntent{From: sol, To: usdc, Amount: "1"}.Validate())
	require.ErrorIs(t, SwapIntent{From: sol, Amount: "1"}.Validate(), ErrIntentMissingToken)
	require.ErrorIs(t, SwapIntent{From: sol, To: NativeToken()}.Validate(), ErrIntentSameToken)
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected string
		terminal bool
	}{
		{StageIdle, "idle", false},
		{StageJitSwap, "jit_swap", false},
		{StageConfirm, "confirm", false},
		{StageDone, "done", true},
		{StageFailed, "failed", true},
		{Stage(99), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.stage.String())
			require.Equal(t, tt.terminal, tt.stage.Terminal())
		})
	}
}

func TestParseRampType(t *testing.T) {
	rt, err := ParseRampType(" OffRamp ")
	require.NoError(t, err)
	require.Equal(t, RampOff, rt)

	_, err = ParseRampType("sideways")
	require.Error(t, err)
}
