// CLI admin para keywarden: pega contra la API HTTP del servicio.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("KEYWARDEN_URL", "http://localhost:8000")
		out     = envOr("KEYWARDEN_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "keywarden",
		Short: "CLI admin para el servicio de claves de clientes",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env KEYWARDEN_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{BaseURL: baseURL, OutFormat: out, HTTP: &http.Client{Timeout: timeout}}

	var (
		genAlias     = ""
		genCreatedBy = "admin"
		genExpires   = ""
	)
	generateCmd := &cobra.Command{
		Use:   "generate <client_id>",
		Short: "Genera una key nueva (el plaintext sale UNA sola vez)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if genAlias == "" {
				genAlias = fmt.Sprintf("%s key %s", args[0], time.Now().UTC().Format("2006-01-02"))
			}
			payload := map[string]any{
				"client_id":  args[0],
				"key_alias":  genAlias,
				"created_by": genCreatedBy,
			}
			if genExpires != "" {
				t, err := time.Parse(time.RFC3339, genExpires)
				if err != nil {
					return fmt.Errorf("--expires inválido (RFC3339): %w", err)
				}
				payload["expiration_date"] = t.UTC()
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/keys/generate", b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	generateCmd.Flags().StringVar(&genAlias, "alias", genAlias, "alias legible de la key")
	generateCmd.Flags().StringVar(&genCreatedBy, "created-by", genCreatedBy, "quién crea la key")
	generateCmd.Flags().StringVar(&genExpires, "expires", genExpires, "fecha de expiración RFC3339 (opcional)")

	listCmd := &cobra.Command{
		Use:   "list <client_id>",
		Short: "Lista las keys de un cliente (sin secretos)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/keys/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	activeCountCmd := &cobra.Command{
		Use:   "active-count <client_id>",
		Short: "Cantidad de keys activas del cliente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/keys/"+url.PathEscape(args[0])+"/active-count", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <key_id>",
		Short: "Estado de una key por ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/keys/status/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <key_id>",
		Short: "Desactiva una key manualmente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("POST", "/keys/"+url.PathEscape(args[0])+"/deactivate", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <client_id> <secret>",
		Short: "Valida un secreto contra el servicio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _ := json.Marshal(map[string]string{
				"client_id":  args[0],
				"secret_key": args[1],
			})
			status, body, err := cl.do("POST", "/keys/validate", b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	root.AddCommand(generateCmd, listCmd, activeCountCmd, statusCmd, deactivateCmd, validateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
