package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"loader/internal/config"
	"loader/internal/importer"
	"loader/internal/model"
	"loader/internal/netcode"
	"loader/internal/reference"
	"loader/internal/store"
)

var (
	checkOffline bool
	checkExport  string
)

// errHasErrors файл прочитан, но в нем есть ошибки
var errHasErrors = errors.New("в файле есть ошибки")

var checkCmd = &cobra.Command{
	Use:   "check <file.xlsx>",
	Short: "Проверить таблицу и вывести ошибки по строкам",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		deps := importer.Deps{Codec: netcode.NewCodec(cfg.Netcode.SubstationCodes)}

		if !checkOffline {
			st, err := store.New(config.DBPath(cfg))
			if err != nil {
				return err
			}
			defer st.Close()
			deps.Cache = reference.NewCache(st)
		}

		timeout := cfg.Reference.LoadTimeout.Duration
		if timeout <= 0 {
			timeout = config.DefaultConfig().Reference.LoadTimeout.Duration
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return checkFile(ctx, cmd.OutOrStdout(), args[0], deps, checkExport)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkOffline, "offline", false, "без базы справочников: только формат колонок")
	checkCmd.Flags().StringVarP(&checkExport, "output", "o", "", "записать выгрузку, если ошибок нет")
	rootCmd.AddCommand(checkCmd)
}

// checkFile загружает файл в отдельную сессию, проверяет и печатает ошибки
func checkFile(ctx context.Context, out io.Writer, path string, deps importer.Deps, exportPath string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sess := importer.NewSession("check", deps)
	if err := sess.Load(ctx, path, f); err != nil {
		return err
	}

	snap := sess.Snapshot()
	if len(snap.Report.Unknown) > 0 {
		fmt.Fprintf(out, "Неизвестные колонки: %v\n", snap.Report.Unknown)
	}

	errs, err := sess.Validate(ctx)
	if err != nil {
		return err
	}
	printErrors(out, errs)
	if len(errs) > 0 {
		fmt.Fprintf(out, "Строк: %d, с ошибками: %d, ошибок: %d\n", snap.RowCount, len(errs), errs.Count())
		return errHasErrors
	}
	fmt.Fprintf(out, "Строк: %d, ошибок нет\n", snap.RowCount)

	if exportPath == "" {
		return nil
	}
	res, err := sess.Export(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportPath, res.Content, 0644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Выгрузка: %s\n", exportPath)
	return nil
}

// printErrors строки нумеруются с единицы, как в таблице данных
func printErrors(out io.Writer, errs model.ErrorMap) {
	for _, row := range errs.Rows() {
		fields := make([]string, 0, len(errs[row]))
		for f := range errs[row] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(out, "строка %d: %s: %s\n", row+1, f, errs[row][f])
		}
	}
}
