package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/abduss/secureupload/internal/client"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server      string
	operatorKey string
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server, client.WithOperatorKey(o.operatorKey))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	server := os.Getenv("SECUREUPLOAD_SERVER")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:           "uploadctl",
		Short:         "Drive the secure upload workflow from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "API base URL (env SECUREUPLOAD_SERVER)")
	root.PersistentFlags().StringVar(&opts.operatorKey, "operator-key", os.Getenv("SECUREUPLOAD_OPERATOR_KEY"), "operator key for token issuance")

	root.AddCommand(
		newTokenCmd(opts),
		newGrantCmd(opts),
		newConfirmCmd(opts),
		newUploadCmd(opts),
	)
	return root
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an upload token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := opts.client().Issue(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tok)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "client identifier")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

func newGrantCmd(opts *rootOptions) *cobra.Command {
	var ext, contentType string
	cmd := &cobra.Command{
		Use:   "grant TOKEN",
		Short: "Request a presigned upload URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := opts.client().Grant(cmd.Context(), args[0], ext, contentType)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g)
		},
	}
	cmd.Flags().StringVar(&ext, "ext", "", "file extension")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type")
	return cmd
}

func newConfirmCmd(opts *rootOptions) *cobra.Command {
	var in client.Confirmation
	cmd := &cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Confirm a completed upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := opts.client().Confirm(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Filename, "filename", "", "granted filename")
	cmd.Flags().StringVar(&in.ContentType, "content-type", "", "granted content type")
	cmd.Flags().StringVar(&in.Key, "key", "", "granted object key")
	cmd.Flags().StringVar(&in.Receipt, "receipt", "", "grant receipt")
	_ = cmd.MarkFlagRequired("filename")
	_ = cmd.MarkFlagRequired("content-type")
	return cmd
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var clientID, token string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Issue, grant, upload and confirm in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" && clientID == "" {
				return errors.New("either --token or --client-id is required")
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			contentType := ""
			if ext == "" {
				detected, err := mimetype.DetectReader(f)
				if err != nil {
					return fmt.Errorf("detect content type: %w", err)
				}
				// Grant whitelists hold bare media types.
				mediaType, _, err := mime.ParseMediaType(detected.String())
				if err != nil {
					return fmt.Errorf("detect content type: %w", err)
				}
				contentType = mediaType
				if _, err := f.Seek(0, io.SeekStart); err != nil {
					return err
				}
			}

			c := opts.client()
			ctx := cmd.Context()

			if token == "" {
				issued, err := c.Issue(ctx, clientID)
				if err != nil {
					return err
				}
				token = issued.Token
			}

			g, err := c.Grant(ctx, token, ext, contentType)
			if err != nil {
				return err
			}
			if err := c.Put(ctx, g, f, info.Size()); err != nil {
				return err
			}

			msg, err := c.Confirm(ctx, token, client.Confirmation{
				Filename:    g.Filename,
				ContentType: g.ContentType,
				Key:         g.Key,
				Receipt:     g.Receipt,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg, g.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "client identifier used to issue a token")
	cmd.Flags().StringVar(&token, "token", "", "existing upload token")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
