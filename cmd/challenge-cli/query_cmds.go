package main

import (
	"fmt"
	"io"
)

func singleArg(name string, args []string, stderr io.Writer) (string, bool) {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "Usage: challenge-cli %s <arg>\n", name)
		return "", false
	}
	return args[0], true
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	addr, ok := singleArg("balance ADDRESS", args, stderr)
	if !ok {
		return 1
	}
	ctx, cancel := withTimeout()
	defer cancel()
	account, err := newClient().Account(ctx, addr)
	if err != nil {
		return exitFor(stderr, err)
	}
	fmt.Fprintf(stdout, "State for: %s\n", account.Address)
	fmt.Fprintf(stdout, "  Nonce:   %d\n", account.Nonce)
	fmt.Fprintf(stdout, "  Tokens:  %d\n", account.BalanceToken)
	fmt.Fprintf(stdout, "  Native:  %d\n", account.BalanceNative)
	return 0
}

func runGet(args []string, stdout, stderr io.Writer) int {
	id, ok := singleArg("get CHALLENGE_ID", args, stderr)
	if !ok {
		return 1
	}
	ctx, cancel := withTimeout()
	defer cancel()
	view, err := newClient().Challenge(ctx, id)
	if err != nil {
		return exitFor(stderr, err)
	}
	printJSON(stdout, view)
	return 0
}

func runTally(args []string, stdout, stderr io.Writer) int {
	id, ok := singleArg("tally CHALLENGE_ID", args, stderr)
	if !ok {
		return 1
	}
	ctx, cancel := withTimeout()
	defer cancel()
	view, err := newClient().Tally(ctx, id)
	if err != nil {
		return exitFor(stderr, err)
	}
	printJSON(stdout, view)
	return 0
}

func runTrackers(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: challenge-cli trackers")
		return 1
	}
	ctx, cancel := withTimeout()
	defer cancel()
	trackers, err := newClient().Trackers(ctx)
	if err != nil {
		return exitFor(stderr, err)
	}
	printJSON(stdout, trackers)
	return 0
}
