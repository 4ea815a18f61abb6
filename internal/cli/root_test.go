package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/alexander-akhmetov/hudson/internal/config"
	"github.com/alexander-akhmetov/hudson/internal/hudsontest"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
	"github.com/alexander-akhmetov/hudson/internal/scm"
)

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args in an isolated configuration environment
// and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HUDSON_CONFIG_DIR", t.TempDir())
	for _, key := range []string{config.EnvHost, config.EnvPort, config.EnvControlPort, config.EnvTimeout, config.EnvProjectType, config.EnvUsername, config.EnvAPIToken} {
		t.Setenv(key, "")
	}

	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func serverFlags(srv *hudsontest.Server) []string {
	ep := srv.Endpoint()
	return []string{"--host", ep.Host, "--port", strconv.Itoa(ep.Port)}
}

func gitProject(t *testing.T, name, remote string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remote}})
	require.NoError(t, err)
	return dir
}

func TestRootCmdDefinition(t *testing.T) {
	assert.Equal(t, "hudson", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)

	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"create", "diff", "list", "delete", "reset", "status", "shutdown", "config"} {
		assert.Contains(t, names, want)
	}

	for _, name := range []string{"host", "port", "timeout", "debug"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCreateCmdFlags(t *testing.T) {
	flags := createCmd.Flags()

	require.NotNil(t, flags.Lookup("name"))
	typeFlag := flags.Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "t", typeFlag.Shorthand)
	dryRun := flags.Lookup("dry-run")
	require.NotNil(t, dryRun)
	assert.Equal(t, "false", dryRun.DefValue)
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2026-01-15")

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (abc1234, 2026-01-15)")
}

func TestCreateCommand(t *testing.T) {
	srv := hudsontest.NewServer(t)
	dir := gitProject(t, "proj", "git@example.com:proj.git")

	out, err := execute(t, append([]string{"create", dir}, serverFlags(srv)...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Added project 'proj' to Hudson.")
	assert.Contains(t, out, "Trigger builds via: http://"+srv.Endpoint().String()+"/job/proj/build")
	assert.Equal(t, []string{"proj"}, srv.JobNames())

	out, err = execute(t, append([]string{"create", dir}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Project 'proj' already exists on "+srv.Endpoint().String())
}

func TestCreateCommand_UsesLocalConfig(t *testing.T) {
	srv := hudsontest.NewServer(t)
	dir := gitProject(t, "proj", "git@example.com:proj.git")
	ep := srv.Endpoint()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hudson"), 0o755))
	local := "host: " + ep.Host + "\nport: " + strconv.Itoa(ep.Port) + "\nproject_type: golang\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hudson", "config.yaml"), []byte(local), 0o600))

	_, err := execute(t, "create", dir, "--name", "svc")
	require.NoError(t, err)

	job, ok := srv.Job("svc")
	require.True(t, ok)
	assert.Contains(t, string(job.Config), "go test ./...")
}

func TestCreateCommand_DryRun(t *testing.T) {
	dir := gitProject(t, "proj", "git@example.com:proj.git")

	out, err := execute(t, "create", dir, "--dry-run", "--type", "rails")
	require.NoError(t, err)
	assert.Contains(t, out, "<project>")
	assert.Contains(t, out, "bundle exec rake db:schema:load")
}

func TestCreateCommand_NoSCM(t *testing.T) {
	dir := t.TempDir()
	if _, err := scm.Discover(dir); err == nil {
		t.Skip("temp dir is inside a working copy")
	}
	srv := hudsontest.NewServer(t)

	out, err := execute(t, append([]string{"create", dir}, serverFlags(srv)...)...)
	require.Error(t, err)

	assert.Contains(t, out, "Cannot determine project SCM. Currently supported: git, hg, bzr, svn")
	assert.Zero(t, srv.RequestCount())
}

func TestDiffCommand(t *testing.T) {
	srv := hudsontest.NewServer(t)
	dir := gitProject(t, "proj", "git@example.com:proj.git")

	_, err := execute(t, append([]string{"create", dir}, serverFlags(srv)...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"diff", dir, "--type", "node"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "npm test")
}

func TestListCommand(t *testing.T) {
	srv := hudsontest.NewServer(t)
	srv.AddJob("alpha", protocol.ColorBlue, nil)

	out, err := execute(t, append([]string{"list"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Equal(t, "alpha - "+srv.URL+"/job/alpha/\n", out)

	out, err = execute(t, append([]string{"list", "--json"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Equal(t, "success", gjson.Get(out, "jobs.0.status").String())
}

func TestListCommand_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	out, err := execute(t, "list", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	require.Error(t, err)
	assert.Contains(t, out, "Failed connection to 127.0.0.1:"+strconv.Itoa(port))
}

func TestDeleteAndResetCommands(t *testing.T) {
	srv := hudsontest.NewServer(t)
	srv.AddJob("a", protocol.ColorBlue, nil)
	srv.AddJob("b", protocol.ColorBlue, nil)
	srv.AddJob("c", protocol.ColorBlue, nil)

	_, err := execute(t, append([]string{"delete", "a"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, srv.JobNames())

	_, err = execute(t, append([]string{"reset"}, serverFlags(srv)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without --yes")
	assert.Len(t, srv.JobNames(), 2)

	out, err := execute(t, append([]string{"reset", "--yes"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 project(s)")
	assert.Empty(t, srv.JobNames())
}

func TestStatusCommand(t *testing.T) {
	srv := hudsontest.NewServer(t)

	out, err := execute(t, append([]string{"status"}, serverFlags(srv)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Hudson "+hudsontest.Version)
	assert.Contains(t, out, protocol.DefaultNodeDescription)
}

func TestShutdownCommand(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			got <- ""
			return
		}
		defer conn.Close()
		buf := make([]byte, 1)
		n, _ := conn.Read(buf)
		got <- string(buf[:n])
	}()

	port := strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	out, err := execute(t, "shutdown", "--host", "127.0.0.1", "--control", port)
	require.NoError(t, err)

	assert.Equal(t, "0", <-got)
	assert.Contains(t, out, "Sent shutdown signal to 127.0.0.1:"+port)
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HUDSON_PORT=4001\n"), 0o600))

	out, err := execute(t, "config", "show", dir, "--host", "ci.example.com")
	require.NoError(t, err)

	assert.Contains(t, out, "# Hudson Configuration")
	assert.Contains(t, out, "  - embedded")
	assert.Contains(t, out, "  - dotenv:HUDSON_PORT")
	assert.Contains(t, out, "  - cli:host")
	assert.Contains(t, out, "host: ci.example.com")
	assert.Contains(t, out, "port: 4001")
	assert.Contains(t, out, "(none detected)")
}

func TestConfigInit(t *testing.T) {
	out, err := execute(t, "config", "init")
	require.NoError(t, err)

	path := filepath.Join(os.Getenv("HUDSON_CONFIG_DIR"), "config.yaml")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)
}

func TestInvalidPortFlag(t *testing.T) {
	_, err := execute(t, "list", "--port", "70000")
	require.Error(t, err)
}
