package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lessonchain/cmd/internal/passphrase"
	"lessonchain/crypto"
	"lessonchain/rpc"
)

const keyPassEnv = "LESSON_KEY_PASS"

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via LESSON_RPC_URL or --rpc flag
var outputFormat = "json"

// newClient is swapped in tests.
var newClient = func() *rpc.Client { return rpc.NewClient(rpcEndpoint, nil) }

// keystoreOptions is swapped in tests.
var keystoreOptions []crypto.KeystoreOption

// passphraseFor resolves the passphrase protecting a keystore.
var passphraseFor = func(confirm bool) (string, error) {
	src := passphrase.NewSource(keyPassEnv, "participant keystore")
	if confirm {
		src = src.WithConfirmation()
	}
	return src.Get()
}

func main() {
	args := os.Args[1:]
	var err error
	rpcEndpoint = defaultRPCEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "init":
		return runInit(args[1:], stdout, stderr)
	case "complete":
		return runComplete(args[1:], stdout, stderr)
	case "mint":
		return runMint(args[1:], stdout, stderr)
	case "progress":
		return runProgress(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "tokens":
		return runTokens(args[1:], stdout, stderr)
	case "history":
		return runHistory(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("LESSON_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8547"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		if arg == "--output" || strings.HasPrefix(arg, "--output=") {
			value := strings.TrimPrefix(arg, "--output=")
			if arg == "--output" {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("missing value for --output")
				}
				value = args[i+1]
				i++
			}
			switch value {
			case "json", "yaml":
				outputFormat = value
			default:
				return nil, fmt.Errorf("unsupported output format %q", value)
			}
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func loadPrivateKey(path string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("--key is required")
	}
	pass, err := passphraseFor(false)
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(trimmed, pass)
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// printResult renders v in the selected output format. YAML output keeps the
// JSON field names.
func printResult(w io.Writer, v interface{}) int {
	if outputFormat == "yaml" {
		raw, err := json.Marshal(v)
		if err != nil {
			return 1
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return 1
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(generic); err != nil {
			return 1
		}
		return 0
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return 1
	}
	return 0
}

func handleRPCCallError(stderr io.Writer, err error) int {
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		fmt.Fprintf(stderr, "Error: %s (code %d)\n", rpcErr.Message, rpcErr.Code)
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lesson-cli [--rpc URL] [--output json|yaml] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key --out FILE                     Create a participant keystore")
	fmt.Fprintln(w, "  address --participant ADDR | --key FILE     Show the progress record address")
	fmt.Fprintln(w, "  init --key FILE [--payer-key FILE]          Create the progress record")
	fmt.Fprintln(w, "  complete --key FILE --lesson N              Mark a lesson complete")
	fmt.Fprintln(w, "  mint --key FILE --lesson N --name --symbol --uri [--mint ADDR] [--payer-key FILE]")
	fmt.Fprintln(w, "                                              Mint the reward for a completed lesson")
	fmt.Fprintln(w, "  progress --participant ADDR | --record ADDR Show a progress record")
	fmt.Fprintln(w, "  token --mint ADDR                           Show a reward token")
	fmt.Fprintln(w, "  tokens --owner ADDR                         List reward tokens owned by a participant")
	fmt.Fprintln(w, "  history --participant ADDR [--limit N]      Show indexed progress events")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Keystore passphrases are read from %s or prompted on the terminal.\n", keyPassEnv)
}
