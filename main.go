package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/SchnorcherSepp/splitparts/core"
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mackerelio/go-osstat/memory"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// version is set by `go build`
var version = "<version>"

// CLI commands (see https://github.com/alecthomas/kong)
var CLI struct {
	Debug   int    `short:"v" type:"counter" help:"Enable debug mode (-v for DebugLow, -vv for DebugHigh)."`
	EnvFile string `type:"path" help:"Load environment variables (SPLITFS_*) from this file before parsing."`

	Version struct {
	} `cmd:"" help:"Show the program version."`

	Keygen struct {
		KeyFile string `arg:"" type:"path"  help:"Path to the key file (must not exist)."`
	} `cmd:"" help:"Creates a new key file (used for part encryption and names)."`

	Split struct {
		KeyFile  string `short:"k" type:"path" env:"SPLITFS_KEYFILE" help:"Path to the key file (asks for a passphrase if empty)."`
		Min      int64  `short:"m" env:"SPLITFS_MIN" default:"52428800"  help:"Minimal plain length of a part in bytes."`
		Max      int64  `short:"M" env:"SPLITFS_MAX" default:"104857600" help:"Maximal plain length of a part in bytes."`
		BufferKB int    `short:"b" default:"256" help:"Read/write buffer in KB."`
		//-----------------
		InputFile string `arg:"" type:"existingfile"  help:"The file to split."`
		OutputDir string `arg:"" type:"path"          help:"The folder for the part files (created if missing)."`
	} `cmd:"" help:"Encrypts a file into randomly named part files."`

	Join struct {
		KeyFile  string `short:"k" type:"path" env:"SPLITFS_KEYFILE" help:"Path to the key file (asks for a passphrase if empty)."`
		Pick     string `short:"p" help:"Name of the first part, if the folder holds more than one set."`
		BufferKB int    `short:"b" default:"256" help:"Read/write buffer in KB."`
		//-----------------
		InputDir   string `arg:"" type:"existingdir"  help:"The folder with the part files."`
		OutputFile string `arg:"" type:"path"         help:"The restored file (replaced if it exists)."`
	} `cmd:"" help:"Restores a file from its part files."`

	Scan struct {
		KeyFile string `short:"k" type:"path" env:"SPLITFS_KEYFILE" help:"Path to the key file (asks for a passphrase if empty)."`
		//-----------------
		InputDir string `arg:"" type:"existingdir"  help:"The folder with the part files."`
	} `cmd:"" help:"Lists the sets of part files in a folder."`
}

func main() {
	// env file must be loaded before kong reads the env fallbacks
	if f := envFileArg(os.Args[1:]); f != "" {
		if err := godotenv.Load(f); err != nil {
			panic(err)
		}
	}

	description := "The program splits files into encrypted, randomly named parts and joins them again."
	ctx := kong.Parse(&CLI, kong.UsageOnError(), kong.Description(description))
	switch ctx.Selected().Name {

	case "version":
		fmt.Printf("%s %s\n", path.Base(os.Args[0]), version)
		fmt.Printf("%s %s/%s (%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.Compiler)
		break

	case "keygen":
		err := enc.CreateKeyFile(CLI.Keygen.KeyFile)
		if err != nil {
			panic(err)
		}
		break

	case "split":
		debug := uint8(CLI.Debug)
		a := CLI.Split
		split(debug, a.KeyFile, a.InputFile, a.OutputDir, a.Min, a.Max, a.BufferKB)
		break

	case "join":
		debug := uint8(CLI.Debug)
		a := CLI.Join
		join(debug, a.KeyFile, a.InputDir, a.OutputFile, a.Pick, a.BufferKB)
		break

	case "scan":
		debug := uint8(CLI.Debug)
		a := CLI.Scan
		scan(debug, a.KeyFile, a.InputDir)
		break

	default:
		panic(fmt.Sprintf("command not implemented: '%s'", ctx.Command()))
	}
}

//-##################################################################################################################-//

func split(debugLvl uint8, keyStr, inStr, outStr string, minLen, maxLen int64, bufferKB int) {
	checkFreeRam(bufferKB)
	key := loadKey(keyStr)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	err := core.Split(inStr, outStr, key, core.SplitOptions{
		MinPartLength: minLen,
		MaxPartLength: maxLen,
		Observer:      core.ContextObserver(sigCtx, printProgress),
		BufferSize:    bufferKB * 1024,
		DebugLvl:      debugLvl,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fail(err)
	}

	if st, err := os.Stat(inStr); err == nil {
		p := message.NewPrinter(language.German)
		_, _ = p.Printf("%d bytes split in %v\n", st.Size(), time.Since(start).Round(time.Millisecond))
	}
}

func join(debugLvl uint8, keyStr, inStr, outStr, pick string, bufferKB int) {
	checkFreeRam(bufferKB)
	key := loadKey(keyStr)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var resolver core.Resolver = core.ResolverFunc(askResolver)
	if pick != "" {
		resolver = core.ResolverFunc(func(candidates []core.FirstPart) (core.FirstPart, bool) {
			for _, c := range candidates {
				if c.Name == pick {
					return c, true
				}
			}
			return core.FirstPart{}, false
		})
	}

	start := time.Now()
	err := core.Join(inStr, outStr, key, core.JoinOptions{
		Resolver:   resolver,
		Observer:   core.ContextObserver(sigCtx, printProgress),
		BufferSize: bufferKB * 1024,
		DebugLvl:   debugLvl,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fail(err)
	}

	if st, err := os.Stat(outStr); err == nil {
		p := message.NewPrinter(language.German)
		_, _ = p.Printf("%d bytes joined in %v\n", st.Size(), time.Since(start).Round(time.Millisecond))
	}
}

func scan(debugLvl uint8, keyStr, inStr string) {
	key := loadKey(keyStr)

	firsts, err := core.Scan(inStr, key, debugLvl)
	if err != nil {
		fail(err)
	}
	printCandidates(firsts)
}

//-##################################################################################################################-//

// loadKey reads the key file, or asks for a passphrase if no key file is given.
func loadKey(keyStr string) *enc.Key {
	if keyStr != "" {
		key, err := enc.LoadKeyFile(keyStr)
		if err != nil {
			panic(err)
		}
		return key
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		panic(err)
	}
	key, err := enc.FromPassphrase(pass)
	if err != nil {
		panic(err)
	}
	return key
}

// askResolver lets the user pick a set on stdin.
func askResolver(candidates []core.FirstPart) (core.FirstPart, bool) {
	fmt.Fprintf(os.Stderr, "%d sets of file parts found:\n", len(candidates))
	printCandidates(candidates)
	fmt.Fprint(os.Stderr, "Number (empty to cancel): ")

	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	i, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || i < 1 || i > len(candidates) {
		return core.FirstPart{}, false
	}
	return candidates[i-1], true
}

func printCandidates(firsts []core.FirstPart) {
	p := message.NewPrinter(language.German)
	for i, f := range firsts {
		_, _ = p.Printf("%3d) %s  %s  %d parts\n", i+1, f.Name, f.ModTime.Format("2006-01-02 15:04:05"), f.Count)
	}
}

func printProgress(part, total float64) {
	fmt.Fprintf(os.Stderr, "\rpart %3.0f%%  total %3.0f%%", part*100, total*100)
}

// fail prints a task error and exits. Cancellation is not a crash.
func fail(err error) {
	if errors.Is(err, core.ErrCancelled) || errors.Is(err, core.ErrSelectionCancelled) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	panic(err)
}

// envFileArg finds --env-file before kong parses the arguments.
func envFileArg(args []string) string {
	for i, a := range args {
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "--env-file=") {
			return strings.TrimPrefix(a, "--env-file=")
		}
	}
	return ""
}

// Memory held by one split or join besides the two copy buffers (bufio reader and writer):
// the io.Copy buffer inside Encrypt/Decrypt, AES key schedule + CTR stream, HMAC-SHA256 state,
// header and timestamp scratch. Rounded up.
const taskStateBytes = 32*1024 + 4*1024

// taskMemory is the memory one task needs for the given copy buffer size.
func taskMemory(bufferKB int) uint64 {
	if bufferKB < 0 {
		bufferKB = 0
	}
	return 2*uint64(bufferKB)*1024 + taskStateBytes
}

// memoryVerdict rates free memory against the need of a task: "" (fine), "tight" or "short".
// A task needs little, so only a small headroom for the rest of the process is asked for.
func memoryVerdict(free, need uint64) string {
	const headroom = 64 * 1024 * 1024
	switch {
	case free < need+headroom/4:
		return "short"
	case free < 2*need+headroom:
		return "tight"
	}
	return ""
}

// checkFreeRam warns when the copy buffers of --buffer-kb do not fit into free memory.
func checkFreeRam(bufferKB int) {
	mem, err := memory.Get()
	if err != nil {
		return // no stats on this platform
	}

	need := taskMemory(bufferKB)
	switch memoryVerdict(mem.Free, need) {
	case "short":
		fmt.Printf("WARNING: NOT ENOUGH FREE MEMORY FOR --buffer-kb=%d!\n", bufferKB)
	case "tight":
		fmt.Printf("Keep an eye on memory usage (--buffer-kb=%d)!\n", bufferKB)
	default:
		return
	}

	p := message.NewPrinter(language.German)
	_, _ = p.Printf("+ memory free: %d KB\n", mem.Free/1024)
	_, _ = p.Printf("+ task needs: %d KB (2 x %d KB buffers + %d KB cipher state)\n", need/1024, bufferKB, taskStateBytes/1024)
}
