package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/actionfeed/internal/config"
	"github.com/pfrederiksen/actionfeed/internal/mailbox"
	"github.com/pfrederiksen/actionfeed/internal/source"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := sourceInfos(cfg)
			if err != nil {
				return err
			}
			if cfg.Mailbox.Configured() {
				mb, err := mailbox.NewIMAP(imapConfig(cfg.Mailbox))
				if err != nil {
					return err
				}
				infos = append(infos, SourceInfo{Name: mailbox.SourceName, Root: mb.Locator(), Enabled: true})
			}
			return WriteOutput(cmd.OutOrStdout(), infos, OutputFormat(flagFormat), flagVerbose)
		},
	}
}

// sourceInfos lists every registered web source. Without a sources section
// in the config all of them are enabled; otherwise only the listed ones. A
// listed name that is not registered is an error.
func sourceInfos(c config.Config) ([]SourceInfo, error) {
	listed := make(map[string]config.Source, len(c.Sources))
	for _, s := range c.Sources {
		if _, ok := source.Root(s.Name); !ok {
			return nil, fmt.Errorf("%w: %q in config (known: %s)",
				source.ErrUnknownSource, s.Name, strings.Join(source.Names(), ", "))
		}
		listed[s.Name] = s
	}

	names := source.Names()
	infos := make([]SourceInfo, 0, len(names))
	for _, name := range names {
		root, _ := source.Root(name)
		enabled := len(c.Sources) == 0
		if s, ok := listed[name]; ok {
			enabled = s.IsEnabled()
			if s.Root != "" {
				root = s.Root
			}
		}
		infos = append(infos, SourceInfo{Name: name, Root: root, Enabled: enabled})
	}
	return infos, nil
}

func imapConfig(m config.Mailbox) mailbox.IMAPConfig {
	return mailbox.IMAPConfig{
		Host:        m.Host,
		Port:        m.Port,
		Folder:      m.Folder,
		Username:    m.Username,
		Password:    m.Password,
		Search:      m.Search,
		MaxMessages: m.MaxMessages,
		Insecure:    m.Insecure,
	}
}
