package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "renders":
		err = rendersCmd(args, os.Stdout)
	case "audit":
		err = auditCmd(args, os.Stdout)
	case "query":
		err = queryCmd(args, os.Stdout)
	case "state":
		err = stateCmd(args, os.Stdout)
	case "catalog":
		err = catalogCmd(args, os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: admin <command> [flags]")
	fmt.Fprintln(w, "  renders   list the render index (latest first)")
	fmt.Fprintln(w, "  audit     decode request audit logs")
	fmt.Fprintln(w, "  query     run one aggregation against the configured API")
	fmt.Fprintln(w, "  state     fetch /admin/v1/renders from a running server")
	fmt.Fprintln(w, "  catalog   list resource identifiers, display rows and colors")
}
