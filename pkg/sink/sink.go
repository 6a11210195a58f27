package sink

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/hpcio/tierctl/pkg/tiercfg"
)

// env signals consumed by downstream process collaborators
const (
	EnvServerConf   = "TIERCTL_CONF"
	EnvClientConf   = "TIERCTL_CLIENT_CONF"
	EnvAdapterMode  = "TIERCTL_ADAPTER_MODE"
	EnvLogVerbosity = "TIERCTL_LOG_VERBOSITY"
)

const (
	serverConfName = "tierctl_server.yaml"
	clientConfName = "tierctl_client.yaml"
)

// Sink persists assembled configurations to a well-known directory.
type Sink struct {
	Dir string
}

func NewSink(dir string) *Sink {
	return &Sink{Dir: dir}
}

// Persist writes the server and client configurations as YAML and
// returns their paths.
func (s *Sink) Persist(result *tiercfg.Result) (serverPath, clientPath string, err error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("unable to create config dir %s, err: %s", s.Dir, err)
	}
	serverPath = filepath.Join(s.Dir, serverConfName)
	if err := writeYaml(serverPath, result.Server); err != nil {
		return "", "", err
	}
	clientPath = filepath.Join(s.Dir, clientConfName)
	if err := writeYaml(clientPath, result.Client); err != nil {
		return "", "", err
	}
	return serverPath, clientPath, nil
}

// EnvSignals assembles the environment handed to downstream process
// collaborators.
func EnvSignals(serverPath, clientPath string, mode tiercfg.AdapterMode, verbosity int) map[string]string {
	return map[string]string{
		EnvServerConf:   serverPath,
		EnvClientConf:   clientPath,
		EnvAdapterMode:  mode.Tag(),
		EnvLogVerbosity: fmt.Sprintf("%d", verbosity),
	}
}

// Export applies the signals to the current process environment.
func Export(signals map[string]string) {
	for k, v := range signals {
		if err := os.Setenv(k, v); err != nil {
			log.Errorf("unable to set %s, err: %s", k, err)
		}
	}
}

func writeYaml(path string, v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to marshal %s, err: %s", path, err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("unable to write %s, err: %s", path, err)
	}
	log.Infof("wrote %s", path)
	return nil
}
