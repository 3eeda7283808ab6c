package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"challengechain/cmd/internal/passphrase"
	"challengechain/crypto"
	"challengechain/native/challenge"
	"challengechain/rpc"
)

const passphraseEnv = "CHALLENGE_KEYSTORE_PASSPHRASE"

var (
	rpcEndpoint = defaultRPCEndpoint()
	rpcTimeout  = 30 * time.Second
	// newPassphrase is swapped in tests.
	newPassphrase = func() interface{ Get() (string, error) } {
		return passphrase.NewSource(passphraseEnv, "Enter keystore passphrase: ")
	}
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("CHALLENGE_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
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
		out = append(out, arg)
	}
	return out, nil
}

type command func(args []string, stdout, stderr io.Writer) int

var commands = map[string]command{
	"generate-key": runGenerateKey,
	"balance":      runBalance,
	"get":          runGet,
	"tally":        runTally,
	"trackers":     runTrackers,
	"transfer":     runTransfer,
	"create":       runCreate,
	"fund":         runFund,
	"participate":  runParticipate,
	"submit":       runSubmit,
	"vote":         runVote,
	"finalize":     runFinalize,
	"distribute":   runDistribute,
	"claim":        runClaim,
}

// run returns the process exit status: 0 on success, the challenge error's
// code when the node rejected the request, 1 for anything else.
func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
	return cmd(args[1:], stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: challenge-cli [--rpc URL] <command> [flags]

Keys:
  generate-key --out FILE [--light-kdf]
Queries:
  balance ADDRESS
  get CHALLENGE_ID
  tally CHALLENGE_ID
  trackers
Transactions (all take --key FILE and optional --nonce N):
  transfer    --to ADDRESS --amount N
  create      --number N --reward N --participation-fee N --voting-fee N [--max-participants N]
  fund        --id CHALLENGE_ID --amount N
  participate --id CHALLENGE_ID
  submit      --id CHALLENGE_ID --submission ID
  vote        --id CHALLENGE_ID --submission ID
  finalize    --id CHALLENGE_ID [--creator ADDRESS] [--winner-account ADDRESS] [--runner-up-account ADDRESS]
  distribute  --id CHALLENGE_ID --voter ADDRESS [--winning-voters N]
  claim       --id CHALLENGE_ID

The keystore passphrase is read from ` + passphraseEnv + ` or prompted for.`)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func newClient() *rpc.Client {
	return rpc.NewClient(rpcEndpoint, nil)
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rpcTimeout)
}

func printJSON(stdout io.Writer, v interface{}) {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printError(stderr io.Writer, msg string) int {
	fmt.Fprintf(stderr, "Error: %s\n", msg)
	return 1
}

// exitFor reports err and maps node-side challenge errors onto their exit
// code.
func exitFor(stderr io.Writer, err error) int {
	var apiErr *rpc.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(stderr, "Error: %s: %s\n", apiErr.Code, apiErr.Message)
		if known, ok := challenge.ByCode(apiErr.Code); ok {
			return known.ExitCode()
		}
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v (endpoint %s)\n", err, rpcEndpoint)
	return challenge.ExitCode(err)
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate-key", stderr)
	out := fs.String("out", "wallet.keystore", "keystore file to write")
	light := fs.Bool("light-kdf", false, "use cheaper scrypt parameters")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return printError(stderr, fmt.Sprintf("%s already exists", *out))
	}
	pass, err := newPassphrase().Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	crypto.LightKDF = *light
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return printError(stderr, fmt.Sprintf("write keystore: %v", err))
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}
