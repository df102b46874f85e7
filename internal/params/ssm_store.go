package params

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

// SSMStore keeps parameters in AWS Systems Manager Parameter Store.
// Values are written as SecureString and decrypted on read.
type SSMStore struct {
	client ssmiface.SSMAPI
}

func NewSSMStore(client ssmiface.SSMAPI) *SSMStore {
	return &SSMStore{client: client}
}

func (s *SSMStore) GetByPath(ctx context.Context, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(false),
		WithDecryption: aws.Bool(true),
	}
	err := s.client.GetParametersByPathPagesWithContext(ctx, input, func(page *ssm.GetParametersByPathOutput, _ bool) bool {
		for _, p := range page.Parameters {
			rel := strings.TrimPrefix(aws.StringValue(p.Name), prefix)
			if rel == "" || strings.Contains(rel, "/") {
				continue
			}
			out[rel] = aws.StringValue(p.Value)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ssm get parameters by path %s: %w", prefix, err)
	}
	return out, nil
}

func (s *SSMStore) Put(ctx context.Context, name, value string) error {
	_, err := s.client.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      aws.String(ssm.ParameterTypeSecureString),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm put parameter %s: %w", name, err)
	}
	return nil
}
