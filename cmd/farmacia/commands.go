package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/application/inventory"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

var stdout io.Writer = os.Stdout

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func money(d decimal.Decimal) string {
	return "C$" + d.StringFixed(2)
}

func dateOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func warn(res *inventory.Result) {
	if res != nil && res.Warning != "" {
		fmt.Fprintln(os.Stderr, "AVISO: "+res.Warning)
	}
}

// singleID exige exactamente un argumento posicional: el id del medicamento.
func singleID(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: se espera el id del medicamento", fs.Name())
	}
	return fs.Arg(0), nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	username := fs.StringP("username", "u", "", "usuario")
	password := fs.StringP("password", "p", "", "contraseña (si se omite se lee de stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		fmt.Fprint(os.Stderr, "Contraseña: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	s, err := a.session.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if s.Test {
		fmt.Fprintln(os.Stderr, "AVISO: servidor de autenticación no disponible, sesión de prueba")
	}
	fmt.Fprintf(stdout, "Bienvenido, %s (%s)\n", s.User.Username, s.User.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Sesión cerrada")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	u := a.session.User()
	if u == nil {
		fmt.Fprintln(stdout, "Sin sesión")
		return nil
	}
	fmt.Fprintf(stdout, "%s\trol=%s\tfarmacia=%d\n", u.Username, u.Role, u.PharmacyID)
	return nil
}

func printMedications(meds []*entity.Medication) {
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tCANTIDAD\tPRECIO\tVENCE\t")
	for _, m := range meds {
		r := dto.ToMedicationResponse(m)
		flags := ""
		if r.LowStock {
			flags = "stock bajo"
		}
		if m.IsLocal() {
			flags = strings.TrimSpace(flags + " local")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Quantity, money(r.Price), dateOrDash(r.ExpirationDate), flags)
	}
	_ = w.Flush()
}

func cmdList(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	q := fs.StringP("q", "q", "", "buscar por nombre")
	if err := fs.Parse(args); err != nil {
		return err
	}
	meds := a.inv.List()
	if *q != "" {
		meds = a.inv.Search(*q)
	}
	printMedications(meds)
	return nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add")
	name := fs.String("name", "", "nombre")
	qty := fs.Int("quantity", 0, "cantidad inicial")
	price := fs.String("price", "0", "precio unitario")
	expires := fs.String("expires", "", "fecha de expiración YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := decimal.NewFromString(*price)
	if err != nil {
		return domain.NewValidationError("price", "precio inválido")
	}
	exp, err := dto.ParseDate(*expires)
	if err != nil {
		return err
	}
	res, err := a.inv.Add(ctx, inventory.Draft{Name: *name, Quantity: *qty, Price: p, ExpirationDate: exp})
	if err != nil {
		return err
	}
	warn(res)
	printMedications([]*entity.Medication{res.Medication})
	return nil
}

func cmdUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("update")
	name := fs.String("name", "", "nombre")
	qty := fs.Int("quantity", 0, "cantidad")
	price := fs.String("price", "", "precio unitario")
	expires := fs.String("expires", "", "fecha de expiración YYYY-MM-DD")
	clearExp := fs.Bool("clear-expires", false, "quitar la fecha de expiración")
	id, err := singleID(fs, args)
	if err != nil {
		return err
	}

	var patch entity.MedicationPatch
	if fs.Changed("name") {
		patch.Name = name
	}
	if fs.Changed("quantity") {
		patch.Quantity = qty
	}
	if fs.Changed("price") {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return domain.NewValidationError("price", "precio inválido")
		}
		patch.Price = &p
	}
	if fs.Changed("expires") {
		if patch.ExpirationDate, err = dto.ParseDate(*expires); err != nil {
			return err
		}
	}
	patch.ClearExpiration = *clearExp

	res, err := a.inv.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	warn(res)
	printMedications([]*entity.Medication{res.Medication})
	return nil
}

func quantityCommand(name string, op func(context.Context, string, int) (*inventory.Result, error)) func(context.Context, *app, []string) error {
	return func(ctx context.Context, _ *app, args []string) error {
		fs := newFlagSet(name)
		qty := fs.IntP("quantity", "n", 0, "cantidad")
		id, err := singleID(fs, args)
		if err != nil {
			return err
		}
		res, err := op(ctx, id, *qty)
		if err != nil {
			return err
		}
		warn(res)
		printMedications([]*entity.Medication{res.Medication})
		return nil
	}
}

func cmdSell(ctx context.Context, a *app, args []string) error {
	return quantityCommand("sell", a.inv.Sell)(ctx, a, args)
}

func cmdRestock(ctx context.Context, a *app, args []string) error {
	return quantityCommand("restock", a.inv.Restock)(ctx, a, args)
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	id, err := singleID(newFlagSet("remove"), args)
	if err != nil {
		return err
	}
	res, err := a.inv.Remove(ctx, id)
	if err != nil {
		return err
	}
	warn(res)
	fmt.Fprintf(stdout, "Medicamento %s eliminado\n", id)
	return nil
}

func cmdReload(ctx context.Context, a *app, _ []string) error {
	if err := a.inv.Reload(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Lista recargada: %d medicamentos\n", len(a.inv.List()))
	return nil
}

func cmdPending(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("pending")
	retry := fs.Bool("retry", false, "reintentar el envío")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *retry {
		sent, err := a.inv.RetryPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Enviados: %d\n", sent)
	}
	pending, err := a.inv.PendingMovements(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEDICAMENTO\tTIPO\tCANTIDAD\tFECHA")
	for _, m := range pending {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.MedicationName, m.Type, m.Quantity, m.MovementDate.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func reportQuery(name string, args []string) (dto.ReportQuery, error) {
	fs := newFlagSet(name)
	filter := fs.String("filter", "todos", "hoy | 7dias | 30dias | todos")
	date := fs.String("date", "", "fecha específica YYYY-MM-DD (reemplaza el filtro)")
	if err := fs.Parse(args); err != nil {
		return dto.ReportQuery{}, err
	}
	return dto.ReportQuery{Filter: *filter, Date: *date}, nil
}

func cmdSales(ctx context.Context, a *app, args []string) error {
	q, err := reportQuery("sales", args)
	if err != nil {
		return err
	}
	rep, err := a.reports.Sales(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, tx := range rep.Transactions {
		fmt.Fprintf(w, "%s\t%d productos\t%d unidades\t%s\n", tx.Date.In(a.loc).Format("2006-01-02 15:04"), tx.UniqueProducts, tx.TotalUnits, money(tx.Total))
		for _, it := range tx.Items {
			fmt.Fprintf(w, "  %s\tx%d\t%s\t%s\n", it.ProductName, it.Quantity, money(it.UnitPrice), money(it.Subtotal))
		}
	}
	_ = w.Flush()
	s := rep.Summary
	fmt.Fprintf(stdout, "\nTransacciones: %d  Líneas: %d  Unidades: %d  Total: %s\n", s.Transactions, s.Items, s.Units, money(s.Revenue))
	return nil
}

func cmdEntries(ctx context.Context, a *app, args []string) error {
	q, err := reportQuery("entries", args)
	if err != nil {
		return err
	}
	rep, err := a.reports.Entries(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FECHA\tPRODUCTO\tTIPO\tCANTIDAD\tVENCE")
	for _, e := range rep.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.MovementDate.In(a.loc).Format("2006-01-02 15:04"), e.ProductName, e.Kind, e.Quantity, dateOrDash(e.ExpirationDate))
	}
	_ = w.Flush()
	s := rep.Summary
	fmt.Fprintf(stdout, "\nEntradas: %d  Unidades: %d  Nuevos: %d  Stock: %d  Reposición: %d\n", s.Entries, s.Units, s.New, s.Stock, s.Restock)
	return nil
}

func cmdExpired(ctx context.Context, a *app, _ []string) error {
	rep, err := a.reports.Expired(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Vencidos al %s\n", rep.Today)
	for _, e := range rep.Expired {
		fmt.Fprintf(w, "  %s\t%s\t%s días\n", e.Medication.Name, dateOrDash(e.Medication.ExpirationDate), strconv.Itoa(e.DaysExpired))
	}
	fmt.Fprintln(w, "Por vencer (30 días)")
	for _, m := range rep.ExpiringSoon {
		fmt.Fprintf(w, "  %s\t%s\t\n", m.Name, dateOrDash(m.ExpirationDate))
	}
	fmt.Fprintln(w, "Stock bajo")
	for _, m := range rep.LowStock {
		fmt.Fprintf(w, "  %s\t%d\t\n", m.Name, m.Quantity)
	}
	return w.Flush()
}
