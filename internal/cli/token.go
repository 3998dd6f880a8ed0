package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"docarchive/internal/model"
	"docarchive/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an access token signed with JWT_SECRET",
	Long: `Issues a bearer token for the HTTP API. Roles: viewer may read, editor may
also insert, delete, archive and restore, admin may also change archive settings.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStore: "true"},
	RunE:        runTokenIssue,
}

var (
	tokenSubject string
	tokenRole    string
)

func init() {
	tokenIssueCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Subject (user or service name) of the token")
	tokenIssueCmd.Flags().StringVarP(&tokenRole, "role", "r", model.RoleViewer, "Role: viewer, editor or admin")
	_ = tokenIssueCmd.MarkFlagRequired("subject")

	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenIssue(cmd *cobra.Command, _ []string) error {
	if !appConfig.AuthEnabled() {
		return errors.New("JWT_SECRET is not set")
	}

	tokens, err := service.NewTokenService(appConfig.JWTSecret, appConfig.JWTAccessTTL)
	if err != nil {
		return err
	}
	resp, err := tokens.IssueToken(tokenSubject, tokenRole)
	if err != nil {
		return err
	}

	cmd.Println(resp.AccessToken)
	cmd.Printf("expires in %ds\n", resp.ExpiresIn)
	return nil
}
