package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lessonchain/core"
	"lessonchain/crypto"
	"lessonchain/rpc"
	"lessonchain/storage"
)

func setupCLI(t *testing.T) {
	t.Helper()
	programID, err := crypto.ProgramIDFromLabel("cli-test-program")
	require.NoError(t, err)
	metadataID, err := crypto.ProgramIDFromLabel("cli-test-metadata")
	require.NoError(t, err)
	node, err := core.NewNode(storage.NewMemDB(), core.Options{ProgramID: programID, MetadataProgramID: metadataID})
	require.NoError(t, err)
	ts := httptest.NewServer(rpc.NewServer(node, rpc.ServerConfig{}).Handler())

	prevClient, prevPass, prevOpts := newClient, passphraseFor, keystoreOptions
	newClient = func() *rpc.Client { return rpc.NewClient(ts.URL, ts.Client()) }
	passphraseFor = func(bool) (string, error) { return "cli-test-pass", nil }
	keystoreOptions = []crypto.KeystoreOption{crypto.WithLightScrypt()}
	t.Cleanup(func() {
		newClient, passphraseFor, keystoreOptions = prevClient, prevPass, prevOpts
		ts.Close()
		node.Close()
	})
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLILessonFlow(t *testing.T) {
	setupCLI(t)
	keyPath := filepath.Join(t.TempDir(), "learner.keystore")

	code, out, errOut := runCLI(t, "generate-key", "--out", keyPath)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Participant: lrn1")

	key, err := crypto.LoadFromKeystore(keyPath, "cli-test-pass")
	require.NoError(t, err)
	participant := key.PubKey().Address().String()

	code, _, errOut = runCLI(t, "init", "--key", keyPath)
	require.Equal(t, 0, code, errOut)

	code, _, errOut = runCLI(t, "init", "--key", keyPath)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "already initialized")

	code, _, errOut = runCLI(t, "complete", "--key", keyPath, "--lesson", "2")
	require.Equal(t, 0, code, errOut)

	code, out, errOut = runCLI(t, "mint", "--key", keyPath, "--lesson", "2", "--name", "Lesson 2", "--symbol", "LSN", "--uri", "https://lessons.example/2.json")
	require.Equal(t, 0, code, errOut)
	var minted rpc.MintRewardResult
	require.NoError(t, json.Unmarshal([]byte(out), &minted))
	require.True(t, strings.HasPrefix(minted.Mint, "lrnt1"))

	code, out, errOut = runCLI(t, "progress", "--participant", participant)
	require.Equal(t, 0, code, errOut)
	var progress rpc.ProgressResult
	require.NoError(t, json.Unmarshal([]byte(out), &progress))
	require.Equal(t, [5]bool{false, false, true, false, false}, progress.CompletedLessons)
	require.Equal(t, [5]bool{false, false, true, false, false}, progress.NftsClaimed)

	code, out, errOut = runCLI(t, "tokens", "--owner", participant)
	require.Equal(t, 0, code, errOut)
	var owned rpc.TokenListResult
	require.NoError(t, json.Unmarshal([]byte(out), &owned))
	require.Equal(t, []string{minted.Mint}, owned.Mints)

	code, _, errOut = runCLI(t, "token", "--mint", minted.Mint)
	require.Equal(t, 0, code, errOut)

	code, _, errOut = runCLI(t, "address", "--key", keyPath)
	require.Equal(t, 0, code, errOut)
}

func TestCLISponsoredInit(t *testing.T) {
	setupCLI(t)
	dir := t.TempDir()
	learnerPath := filepath.Join(dir, "learner.keystore")
	sponsorPath := filepath.Join(dir, "sponsor.keystore")
	for _, path := range []string{learnerPath, sponsorPath} {
		code, _, errOut := runCLI(t, "generate-key", "--out", path)
		require.Equal(t, 0, code, errOut)
	}

	code, out, errOut := runCLI(t, "init", "--key", learnerPath, "--payer-key", sponsorPath)
	require.Equal(t, 0, code, errOut)
	var result rpc.InitializeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.True(t, strings.HasPrefix(result.Address, "lrnp1"))

	code, _, errOut = runCLI(t, "init", "--key", learnerPath, "--payer-key", filepath.Join(dir, "missing.keystore"))
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Error loading payer key")
}

func TestCLIValidation(t *testing.T) {
	setupCLI(t)

	code, _, errOut := runCLI(t, "complete", "--key", "x")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "--lesson is required")

	code, _, errOut = runCLI(t, "progress")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "--participant or --record")

	code, _, errOut = runCLI(t, "bogus")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Unknown command")

	code, _, _ = runCLI(t)
	require.Equal(t, 1, code)
}

func TestApplyGlobalFlags(t *testing.T) {
	prev := rpcEndpoint
	t.Cleanup(func() { rpcEndpoint = prev })

	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:1", "progress", "--rpc=http://node:2"})
	require.NoError(t, err)
	require.Equal(t, []string{"progress"}, rest)
	require.Equal(t, "http://node:2", rpcEndpoint)

	_, err = applyGlobalFlags([]string{"--rpc"})
	require.Error(t, err)
	_, err = applyGlobalFlags([]string{"--output", "xml"})
	require.Error(t, err)
}

func TestYAMLOutput(t *testing.T) {
	prev := outputFormat
	t.Cleanup(func() { outputFormat = prev })
	_, err := applyGlobalFlags([]string{"--output=yaml"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Equal(t, 0, printResult(&buf, rpc.AddressResult{Address: "lrnp1abc", Bump: 254}))
	require.Contains(t, buf.String(), "address: lrnp1abc")
	require.Contains(t, buf.String(), "bump: 254")
}
