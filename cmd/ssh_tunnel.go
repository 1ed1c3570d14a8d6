package cmd

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

// TunnelConfig describes an SSH tunnel to a database that is only reachable
// from inside the deployment network. Used for local development.
type TunnelConfig struct {
	SSHUser        string `json:"SSHUser"`
	SSHHost        string `json:"SSHHost"`
	SSHPort        string `json:"SSHPort"`
	RemoteHost     string `json:"RemoteHost"`
	RemotePort     string `json:"RemotePort"`
	LocalPort      string `json:"LocalPort"`
	PrivateKeyPath string `json:"PrivateKeyPath"`
}

var tunnelConfigPath string

var tunnelCmd = &cobra.Command{
	Use:   "ssh-tunnel",
	Short: "Open an SSH tunnel to the remote database for local development",
	Run: func(cmd *cobra.Command, args []string) {
		setLogging(logLevel)

		raw, err := os.ReadFile(tunnelConfigPath)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to read tunnel config")
		}

		var tunnelCfg TunnelConfig
		if err := json.Unmarshal(raw, &tunnelCfg); err != nil {
			log.Fatal().Err(err).Msg("unable to parse tunnel config")
		}

		if err := StartSSHTunnel(&tunnelCfg); err != nil {
			log.Fatal().Err(err).Msg("tunnel failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(tunnelCmd)
	tunnelCmd.Flags().StringVar(&tunnelConfigPath, "tunnel-config", "tunnel.json", "path to the tunnel config file")
}

// SSHClient creates a new SSH client
func SSHClient(config TunnelConfig) (*ssh.Client, error) {
	key, err := os.ReadFile(config.PrivateKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to read private key")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to parse private key")
	}

	// Define the SSH client configuration
	sshConfig := &ssh.ClientConfig{
		User: config.SSHUser,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Don't verify host key (not recommended for production)
		Timeout:         5 * time.Second,             // Connection timeout
	}

	// Connect to the SSH server
	client, err := ssh.Dial("tcp", config.SSHHost+":"+config.SSHPort, sshConfig)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// ForwardTraffic forwards traffic from local to remote host
func ForwardTraffic(localListener net.Listener, client *ssh.Client, config TunnelConfig) {
	for {
		localConn, err := localListener.Accept() // Accept local connection
		if err != nil {
			log.Warn().Err(err).Msg("Failed to accept local connection")
			continue
		}

		// Open a connection to the remote host
		remoteConn, err := client.Dial("tcp", config.RemoteHost+":"+config.RemotePort)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to remote host")
			localConn.Close()
			continue
		}

		// Forward data between local and remote connections
		go func() {
			defer localConn.Close()
			defer remoteConn.Close()

			// Forward local to remote
			go io.Copy(remoteConn, localConn)
			// Forward remote to local
			io.Copy(localConn, remoteConn)
		}()
	}
}

// StartSSHTunnel initializes the SSH tunnel and forwards traffic
func StartSSHTunnel(config *TunnelConfig) error {
	// Create an SSH client
	client, err := SSHClient(*config)
	if err != nil {
		return err
	}
	defer client.Close()

	// Listen on the local port
	localListener, err := net.Listen("tcp", "localhost:"+config.LocalPort)
	if err != nil {
		return err
	}
	defer localListener.Close()

	log.Info().Msgf("SSH tunnel started on localhost:%s forwarding to %s:%s", config.LocalPort, config.RemoteHost, config.RemotePort)

	// Forward the traffic between local and remote
	ForwardTraffic(localListener, client, *config)

	return nil
}
