package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// StudentRepository reads and registers students on the registrar.
type StudentRepository struct {
	client *RegistrarClient
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(client *RegistrarClient) *StudentRepository {
	return &StudentRepository{client: client}
}

// List returns GET /students/, scoped by the registrar to the caller's department.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	if err := r.client.Get(ctx, "/students/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Detail returns GET /getdetails/:id/.
func (r *StudentRepository) Detail(ctx context.Context, id int) (*models.StudentDetail, error) {
	var out models.StudentDetail
	if err := r.client.Get(ctx, fmt.Sprintf("/getdetails/%d/", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates one student via POST /student/register/.
func (r *StudentRepository) Register(ctx context.Context, req models.StudentRegistration) error {
	return r.client.Post(ctx, "/student/register/", req, nil)
}

// RegisterBatch creates many students in one POST /studentblukregister/ call.
func (r *StudentRepository) RegisterBatch(ctx context.Context, reqs []models.StudentRegistration) (*models.BatchImportReply, error) {
	var out models.BatchImportReply
	body := map[string]interface{}{"students": reqs}
	if err := r.client.Post(ctx, "/studentblukregister/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
