package helpers

import (
	"image/color"
	"math/big"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdp/qrterminal/v3"
	"github.com/muesli/gamut"
)

var ethAddressRe = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// ShortenAddr shortens an Ethereum address for display
func ShortenAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// IsValidEthAddress checks if a string is a valid Ethereum address
func IsValidEthAddress(s string) bool {
	return ethAddressRe.MatchString(s)
}

// FormatETH formats Wei to ETH with proper decimals
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "0 ETH"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return eth.Text('f', 6) + " ETH"
}

// FadeString creates a gradient colored string
func FadeString(s string, firstColor string, lastColor string) string {
	n := len([]rune(s))
	if n == 0 {
		return ""
	}
	blends := gamut.Blends(lipgloss.Color(firstColor), lipgloss.Color(lastColor), n)
	return rainbow(lipgloss.NewStyle(), s, blends)
}

func rainbow(baseStyle lipgloss.Style, str string, colors []color.Color) string {
	var result strings.Builder
	i := 0
	for _, c := range str {
		col, _ := colorful.MakeColor(colors[i%len(colors)])
		result.WriteString(baseStyle.Foreground(lipgloss.Color(col.Hex())).Render(string(c)))
		i++
	}
	return result.String()
}

// GenerateQRCode renders text as a half-block QR code for the terminal
func GenerateQRCode(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	qrterminal.GenerateHalfBlock(text, qrterminal.L, &b)
	return b.String()
}

// TxURL joins an explorer base URL and a transaction hash
func TxURL(explorer, hash string) string {
	if explorer == "" {
		return hash
	}
	return strings.TrimRight(explorer, "/") + "/tx/" + hash
}
