// Command ldap-passwd changes the password of an LDAP entry with the
// password-modify extended operation.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/netresearch/ldap-passwd/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, cli.DefaultApp(), os.Args[1:])
	stop()
	os.Exit(code)
}
