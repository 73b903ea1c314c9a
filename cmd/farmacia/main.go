// farmacia es el cliente de terminal del inventario: sesión, medicamentos, ventas y reportes.
//
// Uso: farmacia <comando> [opciones]. "farmacia help" lista los comandos.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/jhoicas/farmacia-api/internal/domain"
)

type command struct {
	summary string
	// needsInventory carga la lista de medicamentos antes de ejecutar.
	needsInventory bool
	needsSession   bool
	run            func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":   {summary: "iniciar sesión", run: cmdLogin},
	"logout":  {summary: "cerrar sesión", run: cmdLogout},
	"whoami":  {summary: "usuario de la sesión actual", run: cmdWhoami},
	"list":    {summary: "listar medicamentos [--q texto]", needsSession: true, needsInventory: true, run: cmdList},
	"add":     {summary: "agregar medicamento --name --quantity --price [--expires YYYY-MM-DD]", needsSession: true, needsInventory: true, run: cmdAdd},
	"update":  {summary: "editar medicamento <id> [--name] [--quantity] [--price] [--expires] [--clear-expires]", needsSession: true, needsInventory: true, run: cmdUpdate},
	"sell":    {summary: "vender <id> --quantity n", needsSession: true, needsInventory: true, run: cmdSell},
	"restock": {summary: "agregar stock <id> --quantity n", needsSession: true, needsInventory: true, run: cmdRestock},
	"remove":  {summary: "eliminar medicamento <id>", needsSession: true, needsInventory: true, run: cmdRemove},
	"reload":  {summary: "recargar la lista desde el servidor", needsSession: true, run: cmdReload},
	"sales":   {summary: "reporte de ventas [--filter hoy|7dias|30dias|todos] [--date YYYY-MM-DD]", needsSession: true, run: cmdSales},
	"entries": {summary: "reporte de entradas [--filter] [--date]", needsSession: true, run: cmdEntries},
	"expired": {summary: "vencidos, por vencer y stock bajo", needsSession: true, run: cmdExpired},
	"pending": {summary: "movimientos pendientes de envío [--retry]", needsSession: true, needsInventory: true, run: cmdPending},
}

func usage() {
	fmt.Fprintln(os.Stderr, "Uso: farmacia <comando> [opciones]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", n, commands[n].summary)
	}
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "comando desconocido: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	err = a.prepare(ctx, cmd)
	if err == nil {
		err = cmd.run(ctx, a, os.Args[2:])
	}
	a.close()
	if err != nil {
		report(err)
		os.Exit(1)
	}
}

func report(err error) {
	switch {
	case errors.Is(err, domain.ErrRemoteUnavailable):
		fmt.Fprintf(os.Stderr, "error: no hay conexión con el servidor (%v)\n", err)
	case errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "error: la sesión expiró, use 'farmacia login'")
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
