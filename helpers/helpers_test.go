package helpers

import (
	"math/big"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestShortenAddr(t *testing.T) {
	assert.Equal(t, "0xABC", ShortenAddr("0xABC"))
	assert.Equal(t, "0xd8dA…6045", ShortenAddr("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
}

func TestIsValidEthAddress(t *testing.T) {
	assert.True(t, IsValidEthAddress("0xc468696e21fAa7776268C028b76F873168527e07"))
	assert.False(t, IsValidEthAddress("0xc468696e21fAa7776268C028b76F873168527e0"))
	assert.False(t, IsValidEthAddress("c468696e21fAa7776268C028b76F873168527e07"))
}

func TestFormatETH(t *testing.T) {
	assert.Equal(t, "0 ETH", FormatETH(nil))
	oneAndHalf := new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17))
	assert.Equal(t, "1.500000 ETH", FormatETH(oneAndHalf))
}

func TestFadeStringKeepsText(t *testing.T) {
	assert.Equal(t, "", FadeString("", "#F25D94", "#EDFF82"))
	out := FadeString("wave 👋", "#F25D94", "#EDFF82")
	assert.Equal(t, lipgloss.Width("wave 👋"), lipgloss.Width(out))
}

func TestTxURL(t *testing.T) {
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0x01", TxURL("https://sepolia.etherscan.io/", "0x01"))
	assert.Equal(t, "0x01", TxURL("", "0x01"))
}

func TestGenerateQRCode(t *testing.T) {
	assert.Empty(t, GenerateQRCode(""))
	assert.NotEmpty(t, GenerateQRCode("https://sepolia.etherscan.io/tx/0x01"))
}
