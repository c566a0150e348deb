package main

import (
	"fmt"

	"govarnam/internal/langdetect"
	"govarnam/internal/schemes"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var transliterateCmd = &cobra.Command{
	Use:   "transliterate <text>...",
	Short: "Convert Roman input into the target script",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		for _, input := range args {
			suggestions, err := v.Transliterate(input)
			if err != nil {
				logger.Error("transliteration failed",
					zap.String("input", input), zap.String("detail", v.LastError()))
				return err
			}
			for _, s := range suggestions {
				fmt.Printf("%s\t%d\n", s.Text, s.Confidence)
			}
		}
		return nil
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse <text>...",
	Short: "Convert target-script text back into its Roman form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openHandle()
		if err != nil {
			return err
		}
		defer v.Close()

		for _, input := range args {
			out, err := v.ReverseTransliterate(input)
			if err != nil {
				return err
			}
			fmt.Println(out)
		}
		return nil
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Detect the language of Indic-script text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := langdetect.Detect(args[0])
		if lang == langdetect.Unknown {
			fmt.Println("unknown")
			return nil
		}
		fmt.Println(lang)
		return nil
	},
}

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List the scheme files found in the configured directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := schemes.NewRegistry(cfg.SchemeDirs)
		available := registry.List()
		if len(available) == 0 {
			fmt.Println("no schemes found")
			return nil
		}
		for _, info := range available {
			fmt.Printf("%s\t%s\n", info.ID, info.Path)
		}
		return nil
	},
}
