package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const scaffoldDockerfile = `FROM python:3.11-slim

WORKDIR /app

COPY requirements.txt .
RUN pip install --no-cache-dir -r requirements.txt

COPY . .

EXPOSE 8000

CMD ["uvicorn", "app.main:app", "--host", "0.0.0.0", "--port", "8000", "--reload"]
`

const scaffoldRequirements = `fastapi
uvicorn[standard]
python-dotenv
`

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [dir]",
	Short: "Write a starter Dockerfile and requirements.txt into a build context",
	Long:  "Creates the files the provisioning sequence expects in a build context: a Dockerfile for a Python web service and a requirements.txt manifest. Existing files are never overwritten.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating build context %q: %w", dir, err)
		}
		files := []struct {
			name    string
			content string
		}{
			{"Dockerfile", scaffoldDockerfile},
			{"requirements.txt", scaffoldRequirements},
		}
		for _, f := range files {
			target := filepath.Join(dir, f.name)
			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", target)
			}
		}
		for _, f := range files {
			target := filepath.Join(dir, f.name)
			if err := os.WriteFile(target, []byte(f.content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scaffoldCmd)
}
