package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sepolia = big.NewInt(11155111)

func testTx(nonce uint64) *types.Transaction {
	to := common.HexToAddress("0xc468696e21fAa7776268C028b76F873168527e07")
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      300000,
		GasPrice: big.NewInt(1_000_000_000),
		Data:     []byte{0xde, 0xad},
	})
}

func signedBy(t *testing.T, tx *types.Transaction) common.Address {
	t.Helper()
	from, err := types.Sender(types.LatestSignerForChainID(sepolia), tx)
	require.NoError(t, err)
	return from
}

func receiveAccounts(t *testing.T, ch <-chan []common.Address) []common.Address {
	t.Helper()
	select {
	case accs := <-ch:
		return accs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accounts change")
		return nil
	}
}

// -------------------- DETECT --------------------

func TestDetect(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := hexutil.Encode(crypto.FromECDSA(key))

	t.Run("nothing configured", func(t *testing.T) {
		p, ok := Detect(Options{})
		assert.False(t, ok)
		assert.Nil(t, p)
	})

	t.Run("private key wins", func(t *testing.T) {
		p, ok := Detect(Options{PrivateKey: hexKey, KeystoreDir: t.TempDir()})
		require.True(t, ok)
		assert.Equal(t, "private key", p.Name())
	})

	t.Run("bad key falls through to keystore", func(t *testing.T) {
		p, ok := Detect(Options{PrivateKey: "nothex", KeystoreDir: t.TempDir(), LightKDF: true})
		require.True(t, ok)
		defer p.Close()
		assert.Equal(t, "keystore", p.Name())
	})

	t.Run("missing keystore dir is ignored", func(t *testing.T) {
		p, ok := Detect(Options{KeystoreDir: filepath.Join(t.TempDir(), "missing")})
		assert.False(t, ok)
		assert.Nil(t, p)
	})

	t.Run("external signer", func(t *testing.T) {
		p, ok := Detect(Options{SignerURL: "http://127.0.0.1:1", PollInterval: time.Hour})
		require.True(t, ok)
		defer p.Close()
		assert.Equal(t, "external signer", p.Name())
	})
}

func TestFindReportsSkippedWallets(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		p, skipped := Find(Options{})
		assert.Nil(t, p)
		assert.Empty(t, skipped)
	})

	t.Run("bad key is reported", func(t *testing.T) {
		p, skipped := Find(Options{PrivateKey: "nothex", KeystoreDir: t.TempDir(), LightKDF: true})
		require.NotNil(t, p)
		defer p.Close()
		assert.Equal(t, "keystore", p.Name())
		require.Len(t, skipped, 1)
		assert.Contains(t, skipped[0].Error(), "PRIVATE_KEY ignored")
	})

	t.Run("missing keystore dir is reported", func(t *testing.T) {
		p, skipped := Find(Options{KeystoreDir: filepath.Join(t.TempDir(), "missing")})
		assert.Nil(t, p)
		require.Len(t, skipped, 1)
		assert.Contains(t, skipped[0].Error(), "KEYSTORE_DIR ignored")
	})

	t.Run("keystore path is a file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "key.json")
		require.NoError(t, os.WriteFile(f, []byte("{}"), 0o600))
		p, skipped := Find(Options{KeystoreDir: f})
		assert.Nil(t, p)
		require.Len(t, skipped, 1)
		assert.Contains(t, skipped[0].Error(), "not a directory")
	})

	t.Run("unreachable websocket signer is reported", func(t *testing.T) {
		p, skipped := Find(Options{SignerURL: "ws://127.0.0.1:1"})
		assert.Nil(t, p)
		require.Len(t, skipped, 1)
		assert.Contains(t, skipped[0].Error(), "WALLET_RPC_URL ignored")
	})
}

// -------------------- PRIVATE KEY --------------------

func TestKeyProvider(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	p, err := NewKeyProvider(hexutil.Encode(crypto.FromECDSA(key)))
	require.NoError(t, err)
	assert.False(t, p.NeedsPassphrase())
	ctx := context.Background()

	accs, err := p.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accs, "nothing is granted before a request")

	_, err = p.Transactor(ctx, addr, sepolia)
	require.ErrorIs(t, err, ErrLocked)

	accs, err = p.RequestAccounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accs)

	accs, err = p.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accs)

	opts, err := p.Transactor(ctx, addr, sepolia)
	require.NoError(t, err)
	assert.Equal(t, addr, opts.From)
	signed, err := opts.Signer(addr, testTx(1))
	require.NoError(t, err)
	assert.Equal(t, addr, signedBy(t, signed))

	_, err = p.Transactor(ctx, common.HexToAddress("0x01"), sepolia)
	require.ErrorIs(t, err, ErrLocked)

	changes := make(chan []common.Address, 1)
	sub := p.WatchAccounts(changes)
	defer sub.Unsubscribe()
	require.NoError(t, p.Revoke())
	assert.Empty(t, receiveAccounts(t, changes))

	accs, err = p.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accs)
}

func TestNewKeyProviderRejectsGarbage(t *testing.T) {
	_, err := NewKeyProvider("0xnothex")
	require.Error(t, err)
}

// -------------------- KEYSTORE --------------------

func newTestKeystore(t *testing.T, passphrase string) (string, common.Address) {
	t.Helper()
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acc, err := ks.NewAccount(passphrase)
	require.NoError(t, err)
	return dir, acc.Address
}

func TestKeystoreProvider(t *testing.T) {
	dir, addr := newTestKeystore(t, "correct horse")
	p := NewKeystoreProvider(dir, "", true)
	defer p.Close()
	ctx := context.Background()

	assert.True(t, p.NeedsPassphrase())

	_, err := p.RequestAccounts(ctx, "wrong")
	require.Error(t, err)
	accs, err := p.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accs)

	accs, err = p.RequestAccounts(ctx, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accs)

	opts, err := p.Transactor(ctx, addr, sepolia)
	require.NoError(t, err)
	signed, err := opts.Signer(addr, testTx(3))
	require.NoError(t, err)
	assert.Equal(t, addr, signedBy(t, signed))

	changes := make(chan []common.Address, 1)
	sub := p.WatchAccounts(changes)
	defer sub.Unsubscribe()
	require.NoError(t, p.Revoke())
	assert.Empty(t, receiveAccounts(t, changes))

	_, err = p.Transactor(ctx, addr, sepolia)
	require.ErrorIs(t, err, ErrLocked)
}

func TestKeystoreProviderConfiguredPassphrase(t *testing.T) {
	dir, addr := newTestKeystore(t, "s3cret")
	p := NewKeystoreProvider(dir, "s3cret", true)
	defer p.Close()

	assert.False(t, p.NeedsPassphrase())
	accs, err := p.RequestAccounts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accs)
}

func TestKeystoreProviderEmpty(t *testing.T) {
	p := NewKeystoreProvider(t.TempDir(), "x", true)
	defer p.Close()

	_, err := p.RequestAccounts(context.Background(), "")
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestKeystoreProviderKeyFileRemoved(t *testing.T) {
	dir, addr := newTestKeystore(t, "pw")
	p := NewKeystoreProvider(dir, "pw", true)
	defer p.Close()

	_, err := p.RequestAccounts(context.Background(), "")
	require.NoError(t, err)

	changes := make(chan []common.Address, 1)
	sub := p.WatchAccounts(changes)
	defer sub.Unsubscribe()

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, os.Remove(filepath.Join(dir, f.Name())))
	}
	// the keystore rescans its directory lazily
	require.Eventually(t, func() bool {
		p.KeyStore().Accounts()
		select {
		case accs := <-changes:
			return len(accs) == 0
		default:
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	accs, err := p.Accounts(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, accs, addr)
}

// -------------------- EXTERNAL SIGNER --------------------

// fakeSigner is served as the "eth" namespace of an in-process RPC server.
type fakeSigner struct {
	mu         sync.Mutex
	key        *ecdsa.PrivateKey
	accounts   []common.Address
	noRequest  bool
	bareResult bool
}

func (f *fakeSigner) Accounts() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address{}, f.accounts...)
}

func (f *fakeSigner) RequestAccounts() ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noRequest {
		return nil, errors.New("the method eth_requestAccounts does not exist")
	}
	return append([]common.Address{}, f.accounts...), nil
}

func (f *fakeSigner) SignTransaction(args signTxArgs) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if args.From != crypto.PubkeyToAddress(f.key.PublicKey) {
		return nil, errors.New("unknown account")
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(args.Nonce),
		To:       args.To,
		Gas:      uint64(args.Gas),
		GasPrice: (*big.Int)(args.GasPrice),
		Value:    (*big.Int)(args.Value),
		Data:     args.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID((*big.Int)(args.ChainID)), f.key)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if f.bareResult {
		return hexutil.Bytes(raw), nil
	}
	return signTxResult{Raw: raw}, nil
}

func (f *fakeSigner) setAccounts(accs []common.Address) {
	f.mu.Lock()
	f.accounts = accs
	f.mu.Unlock()
}

func newTestSigner(t *testing.T, f *fakeSigner) *SignerProvider {
	t.Helper()
	srv := gethrpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", f))
	t.Cleanup(srv.Stop)
	p := newSignerProvider(gethrpc.DialInProc(srv), 20*time.Millisecond)
	t.Cleanup(func() { p.Close() })
	return p
}

func newFakeSigner(t *testing.T) (*fakeSigner, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &fakeSigner{key: key, accounts: []common.Address{addr}}, addr
}

func TestSignerProviderRequestAndSign(t *testing.T) {
	for _, bare := range []bool{false, true} {
		f, addr := newFakeSigner(t)
		f.bareResult = bare
		p := newTestSigner(t, f)
		ctx := context.Background()

		accs, err := p.Accounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accs)
		_, err = p.Transactor(ctx, addr, sepolia)
		require.ErrorIs(t, err, ErrLocked)

		accs, err = p.RequestAccounts(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []common.Address{addr}, accs)

		opts, err := p.Transactor(ctx, addr, sepolia)
		require.NoError(t, err)
		tx := testTx(9)
		signed, err := opts.Signer(addr, tx)
		require.NoError(t, err)
		assert.Equal(t, addr, signedBy(t, signed))
		assert.Equal(t, tx.Nonce(), signed.Nonce())
		assert.Equal(t, tx.Data(), signed.Data())
		assert.Equal(t, *tx.To(), *signed.To())

		_, err = opts.Signer(common.HexToAddress("0x01"), tx)
		require.Error(t, err)
	}
}

func TestSignerProviderFallsBackToEthAccounts(t *testing.T) {
	f, addr := newFakeSigner(t)
	f.noRequest = true
	p := newTestSigner(t, f)

	accs, err := p.RequestAccounts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accs)
}

func TestSignerProviderNoAccounts(t *testing.T) {
	f, _ := newFakeSigner(t)
	f.setAccounts(nil)
	p := newTestSigner(t, f)

	_, err := p.RequestAccounts(context.Background(), "")
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestSignerProviderAccountsChanged(t *testing.T) {
	f, addr := newFakeSigner(t)
	p := newTestSigner(t, f)

	changes := make(chan []common.Address, 4)
	sub := p.WatchAccounts(changes)
	defer sub.Unsubscribe()

	_, err := p.RequestAccounts(context.Background(), "")
	require.NoError(t, err)

	other := common.HexToAddress("0x02")
	f.setAccounts([]common.Address{other, addr})
	assert.Equal(t, []common.Address{other, addr}, receiveAccounts(t, changes))

	f.setAccounts(nil)
	assert.Empty(t, receiveAccounts(t, changes))

	accs, err := p.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accs)

	// nothing granted any more, so no further notifications
	f.setAccounts([]common.Address{addr})
	select {
	case accs := <-changes:
		t.Fatalf("unexpected change %v", accs)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSameAccounts(t *testing.T) {
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	assert.True(t, sameAccounts(nil, []common.Address{}))
	assert.True(t, sameAccounts([]common.Address{a, b}, []common.Address{a, b}))
	assert.False(t, sameAccounts([]common.Address{a, b}, []common.Address{b, a}))
	assert.False(t, sameAccounts([]common.Address{a}, nil))
}
