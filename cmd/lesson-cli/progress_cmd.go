package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"strings"

	"lessonchain/crypto"
	"lessonchain/rpc"
)

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	fs.StringVar(&out, "out", "participant.keystore", "path of the keystore to write")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	pass, err := passphraseFor(true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(out, key, pass, keystoreOptions...); err != nil {
		fmt.Fprintf(stderr, "Error: write keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\nParticipant: %s\n", out, key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var participant, keyFile string
	fs.StringVar(&participant, "participant", "", "participant address")
	fs.StringVar(&keyFile, "key", "", "participant keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(participant) == "" {
		if strings.TrimSpace(keyFile) == "" {
			fmt.Fprintln(stderr, "Error: --participant or --key is required")
			return 1
		}
		key, err := loadPrivateKey(keyFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading private key: %v\n", err)
			return 1
		}
		participant = key.PubKey().Address().String()
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.AddressResult
	if err := newClient().Call(ctx, "progress_address", rpc.AddressParams{Participant: strings.TrimSpace(participant)}, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile, payerFile string
	fs.StringVar(&keyFile, "key", "", "participant keystore")
	fs.StringVar(&payerFile, "payer-key", "", "keystore of the account funding the record (defaults to the participant)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading private key: %v\n", err)
		return 1
	}
	payer, err := loadPayerKey(payerFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading payer key: %v\n", err)
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.InitializeResult
	params := rpc.InitializeParams{Payer: payerAddress(payer)}
	if err := callSigned(ctx, key, payer, "progress_initialize", params, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runComplete(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("complete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile, record string
	lesson := fs.Int("lesson", -1, "lesson id (0-4)")
	fs.StringVar(&keyFile, "key", "", "participant keystore")
	fs.StringVar(&record, "record", "", "progress record address (defaults to the derived one)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !flagSet(fs, "lesson") {
		fmt.Fprintln(stderr, "Error: --lesson is required")
		return 1
	}
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading private key: %v\n", err)
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.CompleteLessonResult
	params := rpc.CompleteLessonParams{Record: strings.TrimSpace(record), LessonID: lesson}
	if err := newClient().CallSigned(ctx, key, "progress_completeLesson", params, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runMint(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile, payerFile, record, mint, name, symbol, uri string
	lesson := fs.Int("lesson", -1, "lesson id (0-4)")
	fs.StringVar(&keyFile, "key", "", "participant keystore")
	fs.StringVar(&payerFile, "payer-key", "", "keystore of the account funding the mint (defaults to the participant)")
	fs.StringVar(&record, "record", "", "progress record address (defaults to the derived one)")
	fs.StringVar(&mint, "mint", "", "token identity (random when omitted)")
	fs.StringVar(&name, "name", "", "token name")
	fs.StringVar(&symbol, "symbol", "", "token symbol")
	fs.StringVar(&uri, "uri", "", "metadata uri")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !flagSet(fs, "lesson") {
		fmt.Fprintln(stderr, "Error: --lesson is required")
		return 1
	}
	if strings.TrimSpace(mint) == "" {
		generated, err := randomMint()
		if err != nil {
			fmt.Fprintf(stderr, "Error: generate mint: %v\n", err)
			return 1
		}
		mint = generated
	}
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading private key: %v\n", err)
		return 1
	}
	payer, err := loadPayerKey(payerFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading payer key: %v\n", err)
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.MintRewardResult
	params := rpc.MintRewardParams{
		Record:   strings.TrimSpace(record),
		LessonID: lesson,
		URI:      uri,
		Name:     name,
		Symbol:   symbol,
		Mint:     strings.TrimSpace(mint),
		Payer:    payerAddress(payer),
	}
	if err := callSigned(ctx, key, payer, "progress_mintReward", params, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runProgress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var participant, record string
	fs.StringVar(&participant, "participant", "", "participant address")
	fs.StringVar(&record, "record", "", "progress record address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(participant) == "" && strings.TrimSpace(record) == "" {
		fmt.Fprintln(stderr, "Error: --participant or --record is required")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.ProgressResult
	params := rpc.ProgressQueryParams{Participant: strings.TrimSpace(participant), Record: strings.TrimSpace(record)}
	if err := newClient().Call(ctx, "progress_get", params, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var mint string
	fs.StringVar(&mint, "mint", "", "token identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(mint) == "" {
		fmt.Fprintln(stderr, "Error: --mint is required")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.TokenResult
	if err := newClient().Call(ctx, "token_get", rpc.TokenQueryParams{Mint: strings.TrimSpace(mint)}, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runTokens(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var owner string
	fs.StringVar(&owner, "owner", "", "owner address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(owner) == "" {
		fmt.Fprintln(stderr, "Error: --owner is required")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.TokenListResult
	if err := newClient().Call(ctx, "token_listByOwner", rpc.OwnerParams{Owner: strings.TrimSpace(owner)}, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var participant string
	limit := fs.Int("limit", 0, "maximum number of events")
	fs.StringVar(&participant, "participant", "", "participant address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(participant) == "" {
		fmt.Fprintln(stderr, "Error: --participant is required")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	var result rpc.HistoryResult
	params := rpc.HistoryParams{Participant: strings.TrimSpace(participant), Limit: *limit}
	if err := newClient().Call(ctx, "progress_history", params, &result); err != nil {
		return handleRPCCallError(stderr, err)
	}
	return printResult(stdout, result)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func randomMint() (string, error) {
	var raw [20]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return crypto.FromRaw(crypto.TokenPrefix, raw).String(), nil
}

func loadPayerKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	return loadPrivateKey(path)
}

func payerAddress(payer *crypto.PrivateKey) string {
	if payer == nil {
		return ""
	}
	return payer.PubKey().Address().String()
}

// callSigned signs with key, adding the payer's co-signature when one is set.
func callSigned(ctx context.Context, key, payer *crypto.PrivateKey, method string, params, out interface{}) error {
	if payer == nil {
		return newClient().CallSigned(ctx, key, method, params, out)
	}
	return newClient().CallCoSigned(ctx, key, payer, method, params, out)
}
