package indexer

import "github.com/jinzhu/gorm"

func page(db *gorm.DB, page int, pageSize int) *gorm.DB {
	return db.Offset(page * pageSize).Limit(pageSize)
}

func (c *ChainIndexer) getProposals(proposer string, p int, pageSize int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if proposer != "" {
		q = q.Where("proposer = ?", proposer)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	proposals := make([]Proposal, 0)
	if err := page(q.Order("proposal_id desc"), p, pageSize).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("proposal_id = ?", proposalId).First(&proposal).Error
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (c *ChainIndexer) getVotes(proposal *uint64, voter string, p int, pageSize int) ([]Vote, uint64, error) {
	q := c.db.Model(&Vote{})
	if proposal != nil {
		q = q.Where("proposal = ?", *proposal)
	}
	if voter != "" {
		q = q.Where("voter = ?", voter)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	votes := make([]Vote, 0)
	if err := page(q.Order("id asc"), p, pageSize).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getMembers(p int, pageSize int) ([]Member, uint64, error) {
	var total uint64
	if err := c.db.Model(&Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	members := make([]Member, 0)
	if err := page(c.db.Order("height asc"), p, pageSize).Find(&members).Error; err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (c *ChainIndexer) getPayments(from string, p int, pageSize int) ([]Payment, uint64, error) {
	q := c.db.Model(&Payment{})
	if from != "" {
		q = q.Where("payer = ?", from)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	payments := make([]Payment, 0)
	if err := page(q.Order("id desc"), p, pageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (c *ChainIndexer) getDistributions(consultant string, p int, pageSize int) ([]Distribution, uint64, error) {
	q := c.db.Model(&Distribution{})
	if consultant != "" {
		q = q.Where("consultant = ?", consultant)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	dists := make([]Distribution, 0)
	if err := page(q.Order("id desc"), p, pageSize).Find(&dists).Error; err != nil {
		return nil, 0, err
	}
	return dists, total, nil
}

func (c *ChainIndexer) getParamChanges(kind string, p int, pageSize int) ([]ParamChange, uint64, error) {
	q := c.db.Model(&ParamChange{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	changes := make([]ParamChange, 0)
	if err := page(q.Order("id desc"), p, pageSize).Find(&changes).Error; err != nil {
		return nil, 0, err
	}
	return changes, total, nil
}

func (c *ChainIndexer) getConsultants() ([]Consultant, error) {
	consultants := make([]Consultant, 0)
	if err := c.db.Order("address asc").Find(&consultants).Error; err != nil {
		return nil, err
	}
	return consultants, nil
}
