package delineation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/yungbote/catchment-service/internal/catchment"
	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

// Command runs an external delineation tool once per request.
//
// The tool is invoked as
//
//	<command> [args...] --db DB --gageloc GAGELOC [--catchment CATCHMENT]
//	    --outdir DIR --outfile NAME --reachcode CODE --measure PCT --format DRIVER
//
// and must write its artifact into DIR. The last non-empty line on stdout is
// taken as the artifact name; when the tool prints nothing the name defaults
// to NAME.geojson. With an artifact JSONPath configured, stdout must instead
// be a JSON document and the name is the string the expression selects.
type Command struct {
	log          *logger.Logger
	path         string
	args         []string
	dataset      config.NHDPlus2Config
	timeout      time.Duration
	artifactPath string
}

func NewCommand(log *logger.Logger, dataset config.NHDPlus2Config, rc config.ResolverConfig) *Command {
	if log == nil {
		log = logger.Nop()
	}
	return &Command{
		log:     log.With("service", "DelineationCommand", "command", rc.Command),
		path:    rc.Command,
		args:    append([]string(nil), rc.Args...),
		dataset: dataset,
		timeout: rc.Timeout.Duration,

		artifactPath: strings.TrimSpace(rc.ArtifactJSONPath),
	}
}

// AssertReady checks that the tool is on PATH, the dataset files exist and
// the NHDPlus2 database opens as SQLite.
func (c *Command) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(c.path); err != nil {
		return fmt.Errorf("missing delineation command %q: %w", c.path, err)
	}
	checks := []struct{ option, path string }{
		{"nhdplus2.db_path", c.dataset.DBPath},
		{"nhdplus2.gageloc_path", c.dataset.GageLocPath},
		{"nhdplus2.catchment_path", c.dataset.CatchmentPath},
	}
	for _, chk := range checks {
		if chk.path == "" {
			continue
		}
		if _, err := os.Stat(chk.path); err != nil {
			return fmt.Errorf("%s: %w", chk.option, err)
		}
	}
	tables, err := checkDatabase(ctx, c.dataset.DBPath)
	if err != nil {
		return fmt.Errorf("nhdplus2.db_path: %w", err)
	}
	c.log.Info("delineation dataset ready", "db_path", c.dataset.DBPath, "tables", tables)
	return nil
}

func (c *Command) Resolve(ctx context.Context, req catchment.ResolveRequest) (string, error) {
	if req.Dir == "" {
		return "", fmt.Errorf("workspace dir required")
	}
	if req.BaseName == "" {
		return "", fmt.Errorf("base name required")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.buildArgs(req)
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Dir = req.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.log.Debug("delineation command finished",
		"reachcode", req.Reachcode,
		"duration_ms", time.Since(start).Milliseconds(),
		"exit_error", err,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("delineation command: %w", ctx.Err())
		}
		return "", fmt.Errorf("delineation command failed: %w; stderr=%s; stdout=%s",
			err, strings.TrimSpace(stderr.String()), strings.TrimSpace(stdout.String()))
	}

	if c.artifactPath != "" {
		return artifactFromStatus(stdout.Bytes(), c.artifactPath)
	}
	if name := lastLine(stdout.Bytes()); name != "" {
		return name, nil
	}
	return req.BaseName + ".geojson", nil
}

func artifactFromStatus(out []byte, expr string) (string, error) {
	var doc any
	if err := json.Unmarshal(out, &doc); err != nil {
		return "", fmt.Errorf("delineation status is not valid JSON: %w", err)
	}
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return "", fmt.Errorf("delineation status (%s): %w", expr, err)
	}
	name, ok := val.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("delineation status (%s): no artifact name, got %v", expr, val)
	}
	return strings.TrimSpace(name), nil
}

func (c *Command) buildArgs(req catchment.ResolveRequest) []string {
	args := append([]string(nil), c.args...)
	args = append(args,
		"--db", c.dataset.DBPath,
		"--gageloc", c.dataset.GageLocPath,
	)
	if c.dataset.CatchmentPath != "" {
		args = append(args, "--catchment", c.dataset.CatchmentPath)
	}
	return append(args,
		"--outdir", req.Dir,
		"--outfile", req.BaseName,
		"--reachcode", req.Reachcode,
		"--measure", strconv.FormatFloat(req.Measure, 'f', -1, 64),
		"--format", req.Format,
	)
}

func lastLine(b []byte) string {
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return last
}
