//go:build integration

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"noticerecon/pkg/testutil/containers"
)

type RedisDedupeSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	dedupe *RedisDedupe
	ctx    context.Context
}

func TestRedisDedupeSuite(t *testing.T) {
	suite.Run(t, new(RedisDedupeSuite))
}

func (s *RedisDedupeSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.dedupe = NewRedisDedupe(s.redis.Client)
}

func (s *RedisDedupeSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisDedupeSuite) TestMarkThenSeen() {
	seen, err := s.dedupe.Seen(s.ctx, "NRO2URA_20250615090000")
	s.Require().NoError(err)
	s.False(seen)

	s.Require().NoError(s.dedupe.Mark(s.ctx, "NRO2URA_20250615090000"))

	seen, err = s.dedupe.Seen(s.ctx, "NRO2URA_20250615090000")
	s.Require().NoError(err)
	s.True(seen)
}

func (s *RedisDedupeSuite) TestFilesAreIndependent() {
	s.Require().NoError(s.dedupe.Mark(s.ctx, "NRO2URA_20250614090000"))

	seen, err := s.dedupe.Seen(s.ctx, "NRO2URA_20250615090000")
	s.Require().NoError(err)
	s.False(seen)
}

func (s *RedisDedupeSuite) TestMarkIsIdempotent() {
	s.Require().NoError(s.dedupe.Mark(s.ctx, "NRO2URA_20250615090000"))
	s.Require().NoError(s.dedupe.Mark(s.ctx, "NRO2URA_20250615090000"))

	seen, err := s.dedupe.Seen(s.ctx, "NRO2URA_20250615090000")
	s.Require().NoError(err)
	s.True(seen)
}
