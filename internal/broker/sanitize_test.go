package broker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Demo Pro", "Demo_Pro"},
		{"My App: The Game", "My_App_The_Game"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  padded   title  ", "padded_title"},
		{"___", "app"},
		{"", "app"},
		{"Ünïcodé Náme", "Ünïcodé_Náme"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 300))
	require.Len(t, got, maxFilenameLength)
}
