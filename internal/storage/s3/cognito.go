package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
)

// IdentityAPI is the subset of the Cognito Identity client used to obtain
// federated credentials.
type IdentityAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// IdentityPoolProvider exchanges an unauthenticated Cognito identity for
// temporary AWS credentials.
type IdentityPoolProvider struct {
	client IdentityAPI
	poolID string
}

var _ aws.CredentialsProvider = (*IdentityPoolProvider)(nil)

// NewIdentityPoolProvider returns a provider for the given identity pool.
// Wrap it in aws.NewCredentialsCache so the exchange only happens on expiry.
func NewIdentityPoolProvider(client IdentityAPI, poolID string) *IdentityPoolProvider {
	return &IdentityPoolProvider{client: client, poolID: poolID}
}

// Retrieve implements aws.CredentialsProvider.
func (p *IdentityPoolProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	id, err := p.client.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(p.poolID),
	})
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("get identity id: %w", err)
	}

	out, err := p.client.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: id.IdentityId,
	})
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("get credentials for identity: %w", err)
	}
	if out.Credentials == nil {
		return aws.Credentials{}, errors.New("get credentials for identity: empty credentials")
	}

	c := out.Credentials
	return aws.Credentials{
		AccessKeyID:     aws.ToString(c.AccessKeyId),
		SecretAccessKey: aws.ToString(c.SecretKey),
		SessionToken:    aws.ToString(c.SessionToken),
		Source:          "CognitoIdentity",
		CanExpire:       c.Expiration != nil,
		Expires:         aws.ToTime(c.Expiration),
	}, nil
}
