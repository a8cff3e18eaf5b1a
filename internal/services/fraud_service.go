package services

import (
	"context"
	"fmt"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FraudService scores members for referral abuse and repairs structural
// damage in the referral tree.
type FraudService interface {
	// DetectFraud computes the additive risk score for one member and
	// persists the verdict on the tree node. Each scan overwrites the
	// previous one; flags never accumulate across scans.
	DetectFraud(ctx context.Context, userID primitive.ObjectID) (*models.FraudReport, error)

	// AuditTreeIntegrity walks the whole forest, demotes orphaned nodes to
	// roots and recomputes drifted level counters.
	AuditTreeIntegrity(ctx context.Context) (*models.AuditReport, error)
}

type fraudService struct {
	treeRepo        interfaces.TreeRepository
	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	config          *config.MLMConfig
	logger          *logger.Logger
}

func NewFraudService(
	treeRepo interfaces.TreeRepository,
	userRepo interfaces.UserRepository,
	transactionRepo interfaces.TransactionRepository,
	cfg *config.MLMConfig,
	logger *logger.Logger,
) FraudService {
	return &fraudService{
		treeRepo:        treeRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		config:          cfg,
		logger:          logger,
	}
}

func (s *fraudService) DetectFraud(ctx context.Context, userID primitive.ObjectID) (*models.FraudReport, error) {
	node, err := s.treeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &models.FraudReport{
		UserID:          userID,
		Flags:           []models.FraudFlag{},
		Recommendations: []string{},
		ScannedAt:       now,
	}

	// Referral velocity over the last 24 hours
	referrals, err := s.treeRepo.CountReferralsSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to scan referral velocity: %w", err)
	}
	if referrals > s.config.MaxDailyReferrals {
		report.RiskScore += utils.FraudWeightReferralVelocity
		report.Flags = append(report.Flags, models.FraudFlagExcessiveReferrals)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Review %d referrals registered in the last 24 hours", referrals))
	}

	// Purchase velocity over the last hour
	purchases, err := s.transactionRepo.CountByUserSince(ctx, userID, now.Add(-1*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to scan purchase velocity: %w", err)
	}
	if purchases > s.config.MaxHourlyPurchases {
		report.RiskScore += utils.FraudWeightPurchaseVelocity
		report.Flags = append(report.Flags, models.FraudFlagRapidPurchases)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Review %d purchases settled in the last hour", purchases))
	}

	// Outsized transactions over the last 24 hours
	maxAmount, err := s.transactionRepo.MaxAmountByUserSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction amounts: %w", err)
	}
	if maxAmount > s.config.LargeAmountThreshold {
		report.RiskScore += utils.FraudWeightLargeTransaction
		report.Flags = append(report.Flags, models.FraudFlagLargeTransaction)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Verify the source of a %.2f %s transaction", maxAmount, utils.DefaultCurrency))
	}

	// Registration IP reuse across the direct downline
	shared, err := s.hasSharedIPDownline(ctx, node)
	if err != nil {
		return nil, err
	}
	if shared {
		report.RiskScore += utils.FraudWeightSharedIP
		report.Flags = append(report.Flags, models.FraudFlagSharedIP)
		report.Recommendations = append(report.Recommendations,
			"Investigate downline accounts registered from the same IP address")
	}

	report.IsSuspicious = report.RiskScore >= s.config.MediumRiskThreshold
	report.RiskLevel = riskLevel(report.RiskScore, s.config.MediumRiskThreshold)
	if report.IsSuspicious {
		report.Recommendations = append(report.Recommendations,
			"Suspend commission payouts until the account is manually cleared")
	}

	if err := s.treeRepo.SetFraudStatus(ctx, userID, report.IsSuspicious, report.Flags, now); err != nil {
		return nil, err
	}

	flagNames := make([]string, len(report.Flags))
	for i, flag := range report.Flags {
		flagNames[i] = string(flag)
	}
	s.logger.LogFraudEvent(userID, report.RiskScore, flagNames, report.IsSuspicious)

	return report, nil
}

// hasSharedIPDownline reports whether more than SharedIPThreshold direct
// downline members registered from one IP.
func (s *fraudService) hasSharedIPDownline(ctx context.Context, node *models.TreeNode) (bool, error) {
	if len(node.DownlineMembers) <= s.config.SharedIPThreshold {
		return false, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, node.DownlineMembers)
	if err != nil {
		return false, fmt.Errorf("failed to load downline for IP scan: %w", err)
	}

	byIP := make(map[string]int)
	for _, user := range users {
		if user.RegistrationIP == "" {
			continue
		}
		byIP[user.RegistrationIP]++
		if byIP[user.RegistrationIP] > s.config.SharedIPThreshold {
			return true, nil
		}
	}

	return false, nil
}

func riskLevel(score, mediumThreshold float64) string {
	switch {
	case score >= utils.FraudHighThreshold:
		return "high"
	case score >= mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// AuditTreeIntegrity repairs two classes of damage: nodes whose referrer
// vanished become roots (their downline keeps its positions), and level
// counters that drifted from the actual structure are rewritten. Repairs are
// applied per node so one bad record never blocks the rest of the pass.
func (s *fraudService) AuditTreeIntegrity(ctx context.Context) (*models.AuditReport, error) {
	report := &models.AuditReport{
		Issues:    []string{},
		StartedAt: time.Now(),
	}

	nodes, err := s.treeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for audit: %w", err)
	}

	byUserID := make(map[primitive.ObjectID]*models.TreeNode, len(nodes))
	children := make(map[primitive.ObjectID][]*models.TreeNode)
	for _, node := range nodes {
		byUserID[node.UserID] = node
	}
	for _, node := range nodes {
		if node.ReferrerID != nil {
			children[*node.ReferrerID] = append(children[*node.ReferrerID], node)
		}
	}

	for _, node := range nodes {
		if node.ReferrerID == nil {
			continue
		}

		orphaned := false
		if _, ok := byUserID[*node.ReferrerID]; !ok {
			orphaned = true
		} else {
			exists, err := s.userRepo.Exists(ctx, *node.ReferrerID)
			if err != nil {
				s.logger.WithError(err).WithUserID(node.UserID).Error("Audit could not verify referrer")
				continue
			}
			orphaned = !exists
		}

		if orphaned {
			report.Issues = append(report.Issues,
				fmt.Sprintf("node %s references missing referrer %s", node.UserID.Hex(), node.ReferrerID.Hex()))
			if err := s.treeRepo.DemoteToRoot(ctx, node.UserID); err != nil {
				s.logger.WithError(err).WithUserID(node.UserID).Error("Failed to demote orphaned node")
				continue
			}
			report.FixedCount++
			s.logger.LogTreeEvent(node.UserID, utils.EventTreeRepaired, map[string]interface{}{
				"repair": "demoted_to_root",
			})
		}
	}

	for _, node := range nodes {
		expected := countDownlineByLevel(node, children)
		if expected == node.LevelCounts {
			continue
		}

		report.Issues = append(report.Issues,
			fmt.Sprintf("node %s level counters drifted from tree structure", node.UserID.Hex()))
		if err := s.treeRepo.SetLevelCounts(ctx, node.UserID, expected); err != nil {
			s.logger.WithError(err).WithUserID(node.UserID).Error("Failed to rewrite level counters")
			continue
		}
		report.FixedCount++
		s.logger.LogTreeEvent(node.UserID, utils.EventTreeRepaired, map[string]interface{}{
			"repair": "level_counts_recomputed",
		})
	}

	report.FinishedAt = time.Now()
	s.logger.WithFields(map[string]interface{}{
		"issues": len(report.Issues),
		"fixed":  report.FixedCount,
	}).Info("Tree integrity audit finished")

	return report, nil
}

// countDownlineByLevel walks a node's subtree breadth-first down to
// models.MaxTreeLevel and tallies descendants per relative depth.
func countDownlineByLevel(root *models.TreeNode, children map[primitive.ObjectID][]*models.TreeNode) [models.MaxTreeLevel]int64 {
	var counts [models.MaxTreeLevel]int64

	frontier := children[root.UserID]
	for depth := 1; depth <= models.MaxTreeLevel && len(frontier) > 0; depth++ {
		counts[depth-1] = int64(len(frontier))

		var next []*models.TreeNode
		for _, node := range frontier {
			next = append(next, children[node.UserID]...)
		}
		frontier = next
	}

	return counts
}
