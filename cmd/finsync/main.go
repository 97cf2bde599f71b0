package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"finsync/internal"
	"finsync/internal/config"
	"finsync/internal/erp"
	"finsync/internal/mapping"
	"finsync/internal/reconcile"
	"finsync/internal/refdata"
	"finsync/internal/sheets"
	"finsync/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "refdata:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		kind := fs.String("kind", "", "vendor|account|department|location|currency|item (empty = all)")
		_ = fs.Parse(os.Args[2:])
		var kinds []internal.RefKind
		if strings.TrimSpace(*kind) != "" {
			kinds = []internal.RefKind{internal.RefKind(*kind)}
		}
		svc := refdata.NewSyncService(db, cfg)
		count, err := svc.Refresh(context.Background(), kinds)
		must(err)
		fmt.Printf("reference sync complete: %d records\n", count)

	case "po:sync", "bill:sync", "expense:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pending := fs.String("pending", "Pending", "pending table name")
		synced := fs.String("synced", "Synced", "synced destination table")
		errTable := fs.String("errors", "Errors", "errors destination table")
		xlsxPath := fs.String("xlsx", "", "local workbook path (default: Google Sheets)")
		force := fs.Bool("force", false, "bypass existence checks and always create")
		dryRun := fs.Bool("dry-run", false, "resolve and validate without creating")
		_ = fs.Parse(os.Args[2:])

		src, err := makeTabular(cfg, *xlsxPath)
		must(err)
		accountMap, err := mapping.Load(cfg.AccountItemMapPath)
		must(err)
		resolver, err := refdata.LoadResolver(db, cfg.ErpSandbox)
		must(err)

		builder := reconcile.NewBuilder(resolver, accountMap, cfg.ItemExclusions, cfg.ErpSandbox)
		svc := reconcile.NewService(db, cfg, builder, erp.NewClient(cfg), src)
		report, err := svc.Run(context.Background(), reconcile.RunOptions{
			Kind:         kindFor(cmd),
			PendingTable: *pending,
			SyncedTable:  *synced,
			ErrorsTable:  *errTable,
			Force:        *force,
			DryRun:       *dryRun,
		})
		must(err)
		reconcile.PrintSummary(os.Stdout, report, cfg.ErrorDetailCap)

	case "audit":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		txType := fs.String("type", "po", "po|bill|expense")
		pending := fs.String("pending", "Pending", "table holding the source-of-truth rows")
		xlsxPath := fs.String("xlsx", "", "local workbook path (default: Google Sheets)")
		_ = fs.Parse(os.Args[2:])

		src, err := makeTabular(cfg, *xlsxPath)
		must(err)
		raw, err := src.ReadRows(context.Background(), *pending)
		must(err)
		rows, err := sheets.ParseSourceRows(raw)
		must(err)

		auditor := reconcile.NewAuditor(erp.NewClient(cfg), cfg.ErpSandbox)
		audited := 0
		for _, row := range rows {
			if strings.TrimSpace(row.TransactionNumber) == "" {
				continue
			}
			result, err := auditor.Audit(context.Background(), kindFor(*txType+":sync"), row.TransactionNumber, row.Lines)
			if err != nil {
				fmt.Fprintf(os.Stderr, "audit %s: %v\n", row.Key, err)
				continue
			}
			fmt.Printf("-- %s (%s)\n", row.Key, row.TransactionNumber)
			reconcile.PrintAudit(os.Stdout, result)
			audited++
		}
		fmt.Printf("audited %d transactions\n", audited)

	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("run", "", "run trace id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*runID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--run and --out are required"))
		}
		records, err := db.ListSyncRecords(*runID)
		must(err)
		if len(records) == 0 {
			must(fmt.Errorf("no sync records for run=%s", *runID))
		}
		must(reconcile.ExportRecordsToXLSX(records, *out))
		fmt.Printf("exported %d records to %s\n", len(records), *out)

	default:
		usage()
		os.Exit(1)
	}
}

func kindFor(cmd string) internal.TxKind {
	switch cmd {
	case "po:sync":
		return internal.TxPurchaseOrder
	case "bill:sync":
		return internal.TxVendorBill
	case "expense:sync":
		return internal.TxExpenseReport
	default:
		return internal.TxPurchaseOrder
	}
}

func makeTabular(cfg config.Config, xlsxPath string) (sheets.Tabular, error) {
	if strings.TrimSpace(xlsxPath) != "" {
		return sheets.NewXLSXFile(xlsxPath), nil
	}
	return sheets.NewGoogleSheets(context.Background(), cfg)
}

func usage() {
	fmt.Println("usage: finsync <command>")
	fmt.Println("commands:")
	fmt.Println("  refdata:sync [--kind=vendor|account|department|location|currency|item]")
	fmt.Println("  po:sync      [--pending=Pending] [--synced=Synced] [--errors=Errors] [--xlsx=path] [--force] [--dry-run]")
	fmt.Println("  bill:sync    (same flags as po:sync)")
	fmt.Println("  expense:sync (same flags as po:sync)")
	fmt.Println("  audit        --type=po|bill|expense [--pending=Pending] [--xlsx=path]")
	fmt.Println("  export:xlsx  --run=<traceId> --out=./out/run.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
