package engine

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	cBlack = "\u001b[90m"
	cCyan  = "\u001b[96m"
	cReset = "\u001b[0m"
)

func (app *App) startupMessage(addr string) {
	logo := `%s        _                  %s` + "\n" +
		`%s _   __(_)_______  ____    %s` + "\n" +
		`%s| | / / / ___/ _ \/ __ \   %s` + "\n" +
		`%s| |/ / / /  /  __/ /_/ /   %s` + "\n" +
		`%s|___/_/_/   \___/\____/%s %s` + "\n"

	host, port := splitAddr(addr)
	if host == "" {
		host = "0.0.0.0"
	}

	// tabwriter keeps the spacing consistent across different values,
	// colorable handles the escape sequences on stdout
	var out *tabwriter.Writer
	if os.Getenv("TERM") == "dumb" ||
		(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())) {
		out = tabwriter.NewWriter(colorable.NewNonColorable(os.Stdout), 0, 0, 2, ' ', 0)
	} else {
		out = tabwriter.NewWriter(colorable.NewColorableStdout(), 0, 0, 2, ' ', 0)
	}

	cyan := func(v interface{}) string {
		return fmt.Sprintf("%s%v%s", cCyan, v, cBlack)
	}

	fmt.Fprintf(out, logo, cBlack,
		fmt.Sprintf(" HOST     %s", cyan(host)),
		cBlack, fmt.Sprintf(" PORT     %s", cyan(port)),
		cBlack, fmt.Sprintf(" THREADS  %s", cyan(app.Settings.Threads)),
		cBlack, fmt.Sprintf(" ROUTES   %s\tOS  %s", cyan(len(app.Routes())), cyan(runtime.GOOS)),
		cBlack, cyan(Version), fmt.Sprintf("\tPID %s%s\n", cyan(os.Getpid()), cReset),
	)
	_ = out.Flush()
}

func splitAddr(addr string) (host, port string) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:]
		}
	}
	return addr, ""
}
