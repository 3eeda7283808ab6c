package main

import (
	"flag"
	"fmt"
	"io"

	"challengechain/core/types"
	"challengechain/crypto"
)

// signerFlags are shared by every transaction command.
type signerFlags struct {
	keyFile string
	nonce   int64
}

func (s *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.keyFile, "key", "wallet.keystore", "keystore file of the signer")
	fs.Int64Var(&s.nonce, "nonce", -1, "transaction nonce; fetched from the node when negative")
}

// send signs payload with the keystore key and submits it, printing the
// receipt.
func send(s signerFlags, txType types.TxType, payload interface{}, stdout, stderr io.Writer) int {
	key, err := loadKey(s.keyFile)
	if err != nil {
		return printError(stderr, err.Error())
	}
	client := newClient()
	ctx, cancel := withTimeout()
	defer cancel()

	nonce := uint64(s.nonce)
	if s.nonce < 0 {
		account, err := client.Account(ctx, key.PubKey().Address().String())
		if err != nil {
			return exitFor(stderr, err)
		}
		nonce = account.Nonce
	}
	tx, err := types.NewTransaction(txType, nonce, payload)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return printError(stderr, fmt.Sprintf("sign: %v", err))
	}
	receipt, err := client.SubmitTx(ctx, tx)
	if err != nil {
		return exitFor(stderr, err)
	}
	printJSON(stdout, receipt)
	return 0
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := newPassphrase().Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func parseTxFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

func runTransfer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("transfer", stderr)
	var s signerFlags
	s.register(fs)
	to := fs.String("to", "", "recipient address")
	amount := fs.Uint64("amount", 0, "token amount")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if *to == "" || *amount == 0 {
		return printError(stderr, "--to and a positive --amount are required")
	}
	return send(s, types.TxTypeTransfer, types.TransferPayload{To: *to, Amount: *amount}, stdout, stderr)
}

func runCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create", stderr)
	var s signerFlags
	s.register(fs)
	var p types.CreateChallengePayload
	fs.Uint64Var(&p.Number, "number", 0, "creator-chosen challenge number")
	fs.Uint64Var(&p.Reward, "reward", 0, "reward split between winner and runner-up")
	fs.Uint64Var(&p.ParticipationFee, "participation-fee", 0, "fee paid to join")
	fs.Uint64Var(&p.VotingFee, "voting-fee", 0, "fee paid per vote")
	maxParticipants := fs.Uint("max-participants", 0, "participant cap, 0 for the default")
	fs.StringVar(&p.TreasuryHint, "treasury", "", "expected treasury escrow address")
	fs.StringVar(&p.VotingTreasuryHint, "voting-treasury", "", "expected voting treasury escrow address")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	p.MaxParticipants = uint32(*maxParticipants)
	if uint(p.MaxParticipants) != *maxParticipants {
		return printError(stderr, "--max-participants out of range")
	}
	return send(s, types.TxTypeCreateChallenge, p, stdout, stderr)
}

func runFund(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("fund", stderr)
	var s signerFlags
	s.register(fs)
	id := fs.String("id", "", "challenge id")
	amount := fs.Uint64("amount", 0, "reward tokens to deposit")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if *id == "" {
		return printError(stderr, "--id is required")
	}
	return send(s, types.TxTypeFundReward, types.FundRewardPayload{ChallengeID: *id, Amount: *amount}, stdout, stderr)
}

func runParticipate(args []string, stdout, stderr io.Writer) int {
	return runChallengeOnly("participate", types.TxTypeParticipate, args, stdout, stderr)
}

func runClaim(args []string, stdout, stderr io.Writer) int {
	return runChallengeOnly("claim", types.TxTypeClaimCreatorReward, args, stdout, stderr)
}

func runChallengeOnly(name string, txType types.TxType, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr)
	var s signerFlags
	s.register(fs)
	id := fs.String("id", "", "challenge id")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if *id == "" {
		return printError(stderr, "--id is required")
	}
	return send(s, txType, types.ChallengePayload{ChallengeID: *id}, stdout, stderr)
}

func runSubmit(args []string, stdout, stderr io.Writer) int {
	return runSubmission("submit", types.TxTypeSubmitEntry, args, stdout, stderr)
}

func runVote(args []string, stdout, stderr io.Writer) int {
	return runSubmission("vote", types.TxTypeVote, args, stdout, stderr)
}

func runSubmission(name string, txType types.TxType, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr)
	var s signerFlags
	s.register(fs)
	id := fs.String("id", "", "challenge id")
	submission := fs.String("submission", "", "submission identifier")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if *id == "" || *submission == "" {
		return printError(stderr, "--id and --submission are required")
	}
	return send(s, txType, types.SubmissionPayload{ChallengeID: *id, SubmissionID: *submission}, stdout, stderr)
}

func runFinalize(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("finalize", stderr)
	var s signerFlags
	s.register(fs)
	var p types.FinalizePayload
	fs.StringVar(&p.ChallengeID, "id", "", "challenge id")
	fs.StringVar(&p.Creator, "creator", "", "challenge creator, defaults to the signer")
	fs.StringVar(&p.WinnerAccount, "winner-account", "", "winner payout account when the entry has no submitter")
	fs.StringVar(&p.RunnerUpAccount, "runner-up-account", "", "runner-up payout account when the entry has no submitter")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if p.ChallengeID == "" {
		return printError(stderr, "--id is required")
	}
	if p.Creator == "" {
		addr, err := crypto.KeystoreAddress(s.keyFile)
		if err != nil {
			return printError(stderr, fmt.Sprintf("read signer address: %v", err))
		}
		p.Creator = addr.String()
	}
	return send(s, types.TxTypeFinalizeChallenge, p, stdout, stderr)
}

func runDistribute(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("distribute", stderr)
	var s signerFlags
	s.register(fs)
	var p types.DistributePayload
	fs.StringVar(&p.ChallengeID, "id", "", "challenge id")
	fs.StringVar(&p.Voter, "voter", "", "voter to pay")
	fs.Uint64Var(&p.WinningVoters, "winning-voters", 0, "voters who backed the winner; counted from the tally when 0")
	if !parseTxFlags(fs, args, stderr) {
		return 1
	}
	if p.ChallengeID == "" || p.Voter == "" {
		return printError(stderr, "--id and --voter are required")
	}
	if p.WinningVoters == 0 {
		ctx, cancel := withTimeout()
		tally, err := newClient().Tally(ctx, p.ChallengeID)
		cancel()
		if err != nil {
			return exitFor(stderr, err)
		}
		p.WinningVoters = tally.WinningVoters
	}
	return send(s, types.TxTypeDistributeVotingReward, p, stdout, stderr)
}
