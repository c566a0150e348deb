package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var learnCmd = &cobra.Command{
	Use:   "learn <word>...",
	Short: "Learn one or more words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		for _, word := range args {
			if err := v.Learn(word); err != nil {
				logger.Error("learn failed", zap.String("word", word), zap.String("detail", v.LastError()))
				return err
			}
			logger.Info("learned", zap.String("word", word))
		}
		return nil
	},
}

var learnFileCmd = &cobra.Command{
	Use:   "learn-file <path>",
	Short: "Learn words from a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		status, err := v.LearnFromFile(args[0], func(word string, err error) {
			if err != nil {
				logger.Warn("skipped", zap.String("word", word), zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("learned %d words, %d failed\n", status.TotalWords-status.Failed, status.Failed)
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train <pattern> <word>",
	Short: "Associate a Roman pattern directly with a word",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()
		return v.Train(args[0], args[1])
	},
}

var deleteWordCmd = &cobra.Command{
	Use:   "delete <word>...",
	Short: "Forget learned words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		for _, word := range args {
			if err := v.DeleteWord(word); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	flagWordsPerFile int
	flagExportText   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Export learned words into files under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		cb := func(total, processed int, word string) {
			if processed%5000 == 0 {
				logger.Info("exporting", zap.Int("processed", processed), zap.Int("total", total))
			}
		}
		if flagExportText {
			return v.ExportLearnedWords(flagWordsPerFile, args[0], cb)
		}
		return v.ExportWords(flagWordsPerFile, args[0], cb)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import learnings from exported files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		for _, path := range args {
			if err := v.ImportFromFile(path); err != nil {
				return err
			}
			logger.Info("imported", zap.String("file", path))
		}
		return v.Compact()
	},
}

func init() {
	exportCmd.Flags().IntVar(&flagWordsPerFile, "words-per-file", 30000, "words per exported file")
	exportCmd.Flags().BoolVar(&flagExportText, "text", false, "export plain text instead of JSON")
}
