// Command remex compiles and runs Remex event transform programs.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xyproto/env/v2"

	"github.com/remexlang/remex/pkg/astjson"
	"github.com/remexlang/remex/pkg/capabilities"
	"github.com/remexlang/remex/pkg/compiler"
	"github.com/remexlang/remex/pkg/diag"
	"github.com/remexlang/remex/pkg/formatter"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/stdlib"
	"github.com/remexlang/remex/pkg/value"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: remex -program <ast.json> [-event <event.json>] [-policy <policy.json>] [-check] [-print] [-json]")
	fmt.Fprintln(w, "  -program  program AST file (env REMEX_PROGRAM)")
	fmt.Fprintln(w, "  -event    event file, stdin when omitted (env REMEX_EVENT)")
	fmt.Fprintln(w, "  -policy   embedding policy file (env REMEX_POLICY)")
	fmt.Fprintln(w, "  -check    compile only, do not evaluate")
	fmt.Fprintln(w, "  -print    print the program as canonical source")
	fmt.Fprintln(w, "  -json     emit diagnostics as JSON")
}

func run(args []string) int {
	programPath := env.Str("REMEX_PROGRAM")
	eventPath := env.Str("REMEX_EVENT")
	policyPath := env.Str("REMEX_POLICY")
	checkOnly := false
	printSource := false
	jsonDiags := env.Bool("REMEX_JSON")

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-program", "--program":
			if i+1 < len(args) {
				i++
				programPath = args[i]
			}
		case "-event", "--event":
			if i+1 < len(args) {
				i++
				eventPath = args[i]
			}
		case "-policy", "--policy":
			if i+1 < len(args) {
				i++
				policyPath = args[i]
			}
		case "-check", "--check":
			checkOnly = true
		case "-print", "--print":
			printSource = true
		case "-json", "--json":
			jsonDiags = true
		case "-h", "--help", "help":
			usage(os.Stdout)
			return 0
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", args[i])
			usage(os.Stderr)
			return 1
		}
	}

	if programPath == "" {
		usage(os.Stderr)
		return 1
	}

	tree, err := astjson.LoadProgram(programPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if printSource {
		fmt.Print(formatter.Format(tree))
	}

	policy := capabilities.AllowAll()
	if policyPath != "" {
		policy, err = capabilities.LoadPolicy(policyPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
	}

	program, diags := compiler.Compile(tree, policy.Filter(stdlib.NewRegistry()),
		compiler.WithNodes(policy.Nodes()))
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diag.FormatAll(diags, !jsonDiags))
	}
	if program == nil {
		return 2
	}
	if checkOnly {
		return 0
	}

	event, exitCode := readEvent(eventPath)
	if exitCode != 0 {
		return exitCode
	}

	ctx := runtime.NewContext(event)
	if _, err := program.Resolve(ctx); err != nil {
		var abort *runtime.Abort
		if errors.As(err, &abort) {
			fmt.Fprintln(os.Stderr, abort.Error())
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		// The event may hold mutations committed before the stop.
		fmt.Println(value.ToJSONString(ctx.Target))
		return 3
	}

	fmt.Println(value.ToJSONString(ctx.Target))
	return 0
}

func readEvent(path string) (value.Value, int) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read event: %s\n", err)
		return nil, 1
	}
	if len(data) == 0 {
		return value.NewObject(nil), 0
	}
	event, err := value.FromJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse event JSON: %s\n", err)
		return nil, 1
	}
	return event, 0
}
