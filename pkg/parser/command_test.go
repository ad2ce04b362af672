package parser

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input   string
		amount  string
		from    string
		to      string
		wantErr bool
	}{
		{"swap 1 SOL to USDC", "1", "SOL", "USDC", false},
		{"0.5 usdc to bonk", "0.5", "USDC", "BONK", false},
		{"  swap 10 wsol TO jup ", "10", "SOL", "JUP", false},
		{"swap SOL to USDC", "", "", "", true},
		{"swap 1 SOL USDC", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseSwapCommand(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.amount, cmd.Amount)
			require.Equal(t, tt.from, cmd.SourceToken)
			require.Equal(t, tt.to, cmd.DestToken)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1", "1", false},
		{" 0.25 ", "0.25", false},
		{"0", "0", false},
		{"", "", true},
		{"abc", "", true},
		{"-3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestBaseUnits(t *testing.T) {
	require.Equal(t, "1000000000", ToBaseUnits(decimal.NewFromInt(1), 9).String())
	require.Equal(t, "1500000", ToBaseUnits(decimal.RequireFromString("1.5"), 6).String())
	require.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("1.9"), 0).String())

	require.Equal(t, "9.998099", FromBaseUnits(big.NewInt(9998099), 6).String())
	require.Equal(t, "0", FromBaseUnits(nil, 6).String())
}
