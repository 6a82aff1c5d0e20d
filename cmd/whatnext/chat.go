package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nugget/whatnext/internal/agent"
)

// runner answers one query. *agent.Agent satisfies it.
type runner interface {
	Run(ctx context.Context, query string) agent.Result
}

// runAsk answers a single question and exits. The tool provider is
// released before returning on every path.
func runAsk(ctx context.Context, stdout, stderr io.Writer, opts options, question string) error {
	cfg, logger, err := configuredLogger(stderr, opts)
	if err != nil {
		return err
	}

	st, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := st.newAgent()
	if err != nil {
		return err
	}
	defer a.Close()

	return printResult(stdout, a.Run(ctx, question), opts.outputFmt)
}

// runChat runs an interactive session on in/stdout until EOF, a quit
// word, or cancellation.
func runChat(ctx context.Context, in io.Reader, stdout, stderr io.Writer, opts options) error {
	cfg, logger, err := configuredLogger(stderr, opts)
	if err != nil {
		return err
	}

	st, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := st.newAgent()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(stdout, "Ask what you can do in a city. Type quit to leave.")
	return chatLoop(ctx, in, stdout, a, opts.outputFmt)
}

// chatLoop reads one query per line and prints each answer. Blank lines
// are ignored; quit, exit and q end the session.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, r runner, outputFmt string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}

		if err := printResult(out, r.Run(ctx, line), outputFmt); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printResult(w io.Writer, res agent.Result, outputFmt string) error {
	if outputFmt == "json" {
		return writeJSON(w, res)
	}
	_, err := fmt.Fprintf(w, "%s\n\n", res.Text)
	return err
}
