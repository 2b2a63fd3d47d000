package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// *App satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id int64) error
	Add(ctx context.Context, paths ...string) error
	Export(ctx context.Context, id int64, o exportOptions) error
	Delete(ctx context.Context, id int64) error
	Verify(ctx context.Context, id int64) error
	RoundTrip(ctx context.Context, path, dir string) error
}

const replHelp = `Available commands:
  status                  connection and record count
  (l)ist                  list stored files
  show <id>               metadata and first bytes of a file
  add <path>...           store files
  export <id> [dir]       write a file out and verify it
  delete <id>             remove a file
  verify <id>             check the stored digest
  roundtrip <path> [dir]  add, read back and save a _backup copy
  exit | quit             leave the shell`

// runREPL starts a simple read–eval–print loop over a storage session.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands and missing
// arguments are reported back to the user. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
// Errors returned by handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("bv %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(replHelp)

		case "status":
			err = a.Status(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "show":
			err = withID(args, "show <id>", func(id int64) error { return a.Show(ctx, id) })

		case "add":
			if len(args) == 0 {
				printlnFn("Usage: add <path>...")
				continue
			}
			err = a.Add(ctx, args...)

		case "export":
			err = withID(args, "export <id> [dir]", func(id int64) error {
				o := exportOptions{}
				if len(args) > 1 {
					o.dir = args[1]
				}
				return a.Export(ctx, id, o)
			})

		case "delete":
			err = withID(args, "delete <id>", func(id int64) error { return a.Delete(ctx, id) })

		case "verify":
			err = withID(args, "verify <id>", func(id int64) error { return a.Verify(ctx, id) })

		case "roundtrip":
			if len(args) == 0 || len(args) > 2 {
				printlnFn("Usage: roundtrip <path> [dir]")
				continue
			}
			dir := ""
			if len(args) == 2 {
				dir = args[1]
			}
			err = a.RoundTrip(ctx, args[0], dir)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn(Render(err))
		}
	}
}

func withID(args []string, usage string, fn func(id int64) error) error {
	if len(args) == 0 {
		printlnFn("Usage: " + usage)
		return nil
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return fn(id)
}
