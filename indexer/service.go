package indexer

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
	maxPage    int
}

func NewService(listenAddr string, indexer *ChainIndexer, maxPage int) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
		maxPage:    maxPage,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getMembers", s.handleGetMembers)
	s.engine.POST("/getPayments", s.handleGetPayments)
	s.engine.POST("/getDistributions", s.handleGetDistributions)
	s.engine.POST("/getParamChanges", s.handleGetParamChanges)
	s.engine.POST("/getConsultants", s.handleGetConsultants)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

func (s *Service) Start() error {
	return s.engine.Run(s.listenAddr)
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (s *Service) normalize(p *PageReq) {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PageSize <= 0 || p.PageSize > s.maxPage {
		p.PageSize = s.maxPage
	}
}

func (s *Service) bind(c *gin.Context, req any, p *PageReq) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	s.normalize(p)
	return true
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type ProposalInfo struct {
	Proposal Proposal `json:"proposal"`
	Votes    []Vote   `json:"votes"`
}

type GetProposalsReq struct {
	PageReq
	ProposalId *uint64 `json:"proposalId"`
	Proposer   string  `json:"proposer"`
}

type GetProposalsResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) proposalInfo(p Proposal) (ProposalInfo, error) {
	votes, _, err := s.indexer.getVotes(&p.ProposalId, "", 0, s.maxPage)
	if err != nil {
		return ProposalInfo{}, err
	}
	return ProposalInfo{Proposal: p, Votes: votes}, nil
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalsResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if !s.bind(c, &requestData, &requestData.PageReq) {
		return
	}

	if requestData.ProposalId != nil {
		proposal, err := s.indexer.getProposalById(*requestData.ProposalId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		info, err := s.proposalInfo(proposal)
		if err != nil {
			internalError(c, err)
			return
		}
		response.Proposals = append(response.Proposals, info)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	proposals, total, err := s.indexer.getProposals(requestData.Proposer, requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	response.Total = total
	for _, proposal := range proposals {
		info, err := s.proposalInfo(proposal)
		if err != nil {
			internalError(c, err)
			return
		}
		response.Proposals = append(response.Proposals, info)
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	PageReq
	ProposalId *uint64 `json:"proposalId"`
	Voter      string  `json:"voter"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if !s.bind(c, &requestData, &requestData.PageReq) {
		return
	}
	votes, total, err := s.indexer.getVotes(requestData.ProposalId, requestData.Voter, requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

type GetMembersResponse struct {
	Members []Member `json:"members"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetMembers(c *gin.Context) {
	var requestData PageReq
	if !s.bind(c, &requestData, &requestData) {
		return
	}
	members, total, err := s.indexer.getMembers(requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetMembersResponse{Members: members, Total: total})
}

type GetPaymentsReq struct {
	PageReq
	From string `json:"from"`
}

type GetPaymentsResponse struct {
	Payments []Payment `json:"payments"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetPayments(c *gin.Context) {
	var requestData GetPaymentsReq
	if !s.bind(c, &requestData, &requestData.PageReq) {
		return
	}
	payments, total, err := s.indexer.getPayments(requestData.From, requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetPaymentsResponse{Payments: payments, Total: total})
}

type GetDistributionsReq struct {
	PageReq
	Consultant string `json:"consultant"`
}

type GetDistributionsResponse struct {
	Distributions []Distribution `json:"distributions"`
	Total         uint64         `json:"total"`
}

func (s *Service) handleGetDistributions(c *gin.Context) {
	var requestData GetDistributionsReq
	if !s.bind(c, &requestData, &requestData.PageReq) {
		return
	}
	dists, total, err := s.indexer.getDistributions(requestData.Consultant, requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetDistributionsResponse{Distributions: dists, Total: total})
}

type GetParamChangesReq struct {
	PageReq
	Kind string `json:"kind"`
}

type GetParamChangesResponse struct {
	Changes []ParamChange `json:"changes"`
	Total   uint64        `json:"total"`
}

func (s *Service) handleGetParamChanges(c *gin.Context) {
	var requestData GetParamChangesReq
	if !s.bind(c, &requestData, &requestData.PageReq) {
		return
	}
	changes, total, err := s.indexer.getParamChanges(requestData.Kind, requestData.Page, requestData.PageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetParamChangesResponse{Changes: changes, Total: total})
}

func (s *Service) handleGetConsultants(c *gin.Context) {
	consultants, err := s.indexer.getConsultants()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultants": consultants})
}
