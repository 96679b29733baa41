package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// joinCodeAttempts bounds the generate-and-check loop for new join codes.
// The code space holds 900000 values, so collisions are rare and a small
// bound is enough.
const joinCodeAttempts = 5

// ClassroomInput carries the teacher-supplied fields of a new classroom.
type ClassroomInput struct {
	Name     string
	Subject  string
	Room     string
	Schedule string
	Color    string
}

// ClassroomService manages code-joinable classrooms: creation, roster
// membership and the classroom wall (announcements and assignments).
// Announcement and assignment writes fan notifications out to the roster.
type ClassroomService interface {
	// CreateClassroom creates a classroom owned by the given teacher with
	// a fresh unique join code.
	CreateClassroom(ctx context.Context, owner models.UserProfile, input ClassroomInput) (models.Classroom, error)

	// JoinByCode adds the student to the classroom with the given code.
	// Joining twice yields ErrAlreadyMember.
	JoinByCode(ctx context.Context, student models.UserProfile, code string) (models.Classroom, error)

	// ListForUser returns the classrooms the user owns (teacher) or is
	// enrolled in (student).
	ListForUser(ctx context.Context, uid string, role models.RoleType) ([]models.Classroom, error)

	// GetClassroom resolves one classroom by id.
	GetClassroom(ctx context.Context, classroomID string) (models.Classroom, error)

	// RemoveStudent removes one roster entry. Only the owner may remove
	// students; removing an absent student is a no-op and the flag reports
	// whether the roster changed.
	RemoveStudent(ctx context.Context, classroomID, actorUID, studentUID string) (bool, error)

	// DeleteClassroom deletes the classroom and its wall content. Owner
	// only.
	DeleteClassroom(ctx context.Context, classroomID, actorUID string) error

	// PostAnnouncement publishes to the classroom wall. Members and the
	// owner may post; everyone else on the roster is notified.
	PostAnnouncement(ctx context.Context, classroomID string, author models.UserProfile, content, kind string) (models.Announcement, error)

	// ListAnnouncements returns wall posts newest-first.
	ListAnnouncements(ctx context.Context, classroomID, readerUID string) ([]models.Announcement, error)

	// DeleteAnnouncement removes a wall post. The author or the classroom
	// owner may delete it.
	DeleteAnnouncement(ctx context.Context, classroomID, announcementID, actorUID string) error

	// CreateAssignment publishes a due-dated task. Owner only; the roster
	// is notified.
	CreateAssignment(ctx context.Context, classroomID, actorUID, title, description string, dueDate time.Time) (models.Assignment, error)

	// ListAssignments returns assignments by due date ascending.
	ListAssignments(ctx context.Context, classroomID, readerUID string) ([]models.Assignment, error)

	// DeleteAssignment removes an assignment. Owner only.
	DeleteAssignment(ctx context.Context, classroomID, assignmentID, actorUID string) error
}

type classroomServiceImpl struct {
	store         docstore.Gateway
	notifications NotificationService
	logger        zerolog.Logger
}

// NewClassroomService creates a new ClassroomService
func NewClassroomService(store docstore.Gateway, notifications NotificationService, logger zerolog.Logger) ClassroomService {
	return &classroomServiceImpl{store: store, notifications: notifications, logger: logger}
}

func (s *classroomServiceImpl) CreateClassroom(ctx context.Context, owner models.UserProfile, input ClassroomInput) (models.Classroom, error) {
	if input.Name == "" {
		return models.Classroom{}, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "classroom name is required")
	}

	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return models.Classroom{}, err
	}

	key, err := s.store.Add(ctx, models.CollectionClassrooms, map[string]interface{}{
		"codigo":      code,
		"nome":        input.Name,
		"disciplina":  input.Subject,
		"professor":   owner.Name,
		"professorId": owner.UID,
		"sala":        input.Room,
		"horario":     input.Schedule,
		"cor":         input.Color,
		"alunos":      []interface{}{},
		"alunosIds":   []interface{}{},
		"createdAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner.UID).Msg("Failed to create classroom")
		return models.Classroom{}, err
	}

	s.logger.Info().Str("classroom", key).Str("code", code).Str("owner", owner.UID).Msg("Classroom created")
	return s.GetClassroom(ctx, key)
}

// uniqueJoinCode draws PIM-prefixed six digit codes until one is free.
// Two concurrent creations can still race the check, which matches how
// rarely codes are minted relative to the code space.
func (s *classroomServiceImpl) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code := fmt.Sprintf("PIM-%06d", rand.IntN(900000)+100000)
		existing, err := s.store.Query(ctx, models.CollectionClassrooms,
			[]docstore.Where{{Field: "codigo", Op: docstore.OpEqual, Value: code}}, nil, 1)
		if err != nil {
			return "", err
		}
		if len(existing) == 0 {
			return code, nil
		}
		s.logger.Warn().Str("code", code).Msg("Join code collision, retrying")
	}
	return "", apperrors.ErrJoinCodeExhausted
}

func (s *classroomServiceImpl) JoinByCode(ctx context.Context, student models.UserProfile, code string) (models.Classroom, error) {
	docs, err := s.store.Query(ctx, models.CollectionClassrooms,
		[]docstore.Where{{Field: "codigo", Op: docstore.OpEqual, Value: code}}, nil, 1)
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("Failed to look up join code")
		return models.Classroom{}, err
	}
	if len(docs) == 0 {
		return models.Classroom{}, apperrors.ErrClassroomNotFound
	}

	classroom := models.ClassroomFromDocument(docs[0])
	if containsUID(classroom.RosterIDs, student.UID) {
		return models.Classroom{}, apperrors.ErrAlreadyMember
	}

	// Both roster projections move together in one write, so membership
	// queries and roster rendering can never disagree.
	err = s.store.Merge(ctx, models.CollectionClassrooms, classroom.ID, map[string]interface{}{
		"alunos":    docstore.ArrayUnion(map[string]interface{}{"uid": student.UID, "nome": student.Name}),
		"alunosIds": docstore.ArrayUnion(student.UID),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroom.ID).Str("student", student.UID).Msg("Failed to join classroom")
		return models.Classroom{}, err
	}

	s.logger.Info().Str("classroom", classroom.ID).Str("student", student.UID).Msg("Student joined classroom")
	return s.GetClassroom(ctx, classroom.ID)
}

func (s *classroomServiceImpl) ListForUser(ctx context.Context, uid string, role models.RoleType) ([]models.Classroom, error) {
	var filter docstore.Where
	if role == models.RoleTeacher {
		filter = docstore.Where{Field: "professorId", Op: docstore.OpEqual, Value: uid}
	} else {
		filter = docstore.Where{Field: "alunosIds", Op: docstore.OpArrayContains, Value: uid}
	}

	docs, err := s.store.Query(ctx, models.CollectionClassrooms, []docstore.Where{filter},
		&docstore.Order{Field: "createdAt", Desc: true}, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("Failed to list classrooms")
		return nil, err
	}

	classrooms := make([]models.Classroom, 0, len(docs))
	for _, doc := range docs {
		classrooms = append(classrooms, models.ClassroomFromDocument(doc))
	}
	return classrooms, nil
}

func (s *classroomServiceImpl) GetClassroom(ctx context.Context, classroomID string) (models.Classroom, error) {
	doc, err := s.store.Get(ctx, models.CollectionClassrooms, classroomID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Classroom{}, apperrors.ErrClassroomNotFound
		}
		return models.Classroom{}, err
	}
	return models.ClassroomFromDocument(doc), nil
}

func (s *classroomServiceImpl) RemoveStudent(ctx context.Context, classroomID, actorUID, studentUID string) (bool, error) {
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return false, err
	}
	if classroom.OwnerUID != actorUID {
		return false, apperrors.NewForbiddenError("only the classroom owner can remove students")
	}

	var entry *models.RosterEntry
	for i := range classroom.Roster {
		if classroom.Roster[i].UID == studentUID {
			entry = &classroom.Roster[i]
			break
		}
	}
	if entry == nil && !containsUID(classroom.RosterIDs, studentUID) {
		return false, nil
	}

	// Targeted removal of the one entry, instead of rewriting the whole
	// roster, so a concurrent join of another student is not undone.
	fields := map[string]interface{}{
		"alunosIds": docstore.ArrayRemove(studentUID),
	}
	if entry != nil {
		fields["alunos"] = docstore.ArrayRemove(map[string]interface{}{"uid": entry.UID, "nome": entry.Name})
	}
	if err := s.store.Merge(ctx, models.CollectionClassrooms, classroomID, fields); err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Str("student", studentUID).Msg("Failed to remove student")
		return false, err
	}

	s.logger.Info().Str("classroom", classroomID).Str("student", studentUID).Msg("Student removed from classroom")
	return true, nil
}

func (s *classroomServiceImpl) DeleteClassroom(ctx context.Context, classroomID, actorUID string) error {
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return err
	}
	if classroom.OwnerUID != actorUID {
		return apperrors.NewForbiddenError("only the classroom owner can delete it")
	}

	writes := []docstore.Write{{Kind: docstore.WriteDelete, Collection: models.CollectionClassrooms, Key: classroomID}}
	for _, sub := range []string{models.ClassroomPostsCollection(classroomID), models.ClassroomAssignmentsCollection(classroomID)} {
		docs, err := s.store.Query(ctx, sub, nil, nil, 0)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			writes = append(writes, docstore.Write{Kind: docstore.WriteDelete, Collection: sub, Key: doc.Key})
		}
	}

	if err := s.store.Batch(ctx, writes); err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Msg("Failed to delete classroom")
		return err
	}
	s.logger.Info().Str("classroom", classroomID).Msg("Classroom deleted")
	return nil
}

func (s *classroomServiceImpl) PostAnnouncement(ctx context.Context, classroomID string, author models.UserProfile, content, kind string) (models.Announcement, error) {
	if content == "" {
		return models.Announcement{}, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "announcement content is required")
	}
	classroom, err := s.requireMember(ctx, classroomID, author.UID)
	if err != nil {
		return models.Announcement{}, err
	}
	if kind == "" {
		kind = string(models.NotificationAnnouncement)
	}

	key, err := s.store.Add(ctx, models.ClassroomPostsCollection(classroomID), map[string]interface{}{
		"autor":    author.Name,
		"uidAutor": author.UID,
		"conteudo": content,
		"tipo":     kind,
		"data":     docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Msg("Failed to post announcement")
		return models.Announcement{}, err
	}

	s.fanOut(ctx, classroom, author.UID, classroom.Name, author.Name+" publicou um aviso", models.NotificationAnnouncement)

	doc, err := s.store.Get(ctx, models.ClassroomPostsCollection(classroomID), key)
	if err != nil {
		return models.Announcement{}, err
	}
	return models.AnnouncementFromDocument(doc), nil
}

func (s *classroomServiceImpl) ListAnnouncements(ctx context.Context, classroomID, readerUID string) ([]models.Announcement, error) {
	if _, err := s.requireMember(ctx, classroomID, readerUID); err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, models.ClassroomPostsCollection(classroomID), nil,
		&docstore.Order{Field: "data", Desc: true}, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Msg("Failed to list announcements")
		return nil, err
	}

	announcements := make([]models.Announcement, 0, len(docs))
	for _, doc := range docs {
		announcements = append(announcements, models.AnnouncementFromDocument(doc))
	}
	return announcements, nil
}

func (s *classroomServiceImpl) DeleteAnnouncement(ctx context.Context, classroomID, announcementID, actorUID string) error {
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return err
	}

	doc, err := s.store.Get(ctx, models.ClassroomPostsCollection(classroomID), announcementID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperrors.NewResourceNotFoundError("announcement not found")
		}
		return err
	}

	announcement := models.AnnouncementFromDocument(doc)
	if actorUID != announcement.AuthorUID && actorUID != classroom.OwnerUID {
		return apperrors.NewForbiddenError("only the author or the classroom owner can delete an announcement")
	}
	return s.store.Delete(ctx, models.ClassroomPostsCollection(classroomID), announcementID)
}

func (s *classroomServiceImpl) CreateAssignment(ctx context.Context, classroomID, actorUID, title, description string, dueDate time.Time) (models.Assignment, error) {
	if title == "" {
		return models.Assignment{}, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "assignment title is required")
	}
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return models.Assignment{}, err
	}
	if classroom.OwnerUID != actorUID {
		return models.Assignment{}, apperrors.NewForbiddenError("only the classroom owner can create assignments")
	}

	key, err := s.store.Add(ctx, models.ClassroomAssignmentsCollection(classroomID), map[string]interface{}{
		"titulo":      title,
		"descricao":   description,
		"dataEntrega": dueDate.UTC(),
		"dataCriacao": docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Msg("Failed to create assignment")
		return models.Assignment{}, err
	}

	s.fanOut(ctx, classroom, actorUID, classroom.Name, "Nova atividade: "+title, models.NotificationAssignment)

	doc, err := s.store.Get(ctx, models.ClassroomAssignmentsCollection(classroomID), key)
	if err != nil {
		return models.Assignment{}, err
	}
	return models.AssignmentFromDocument(doc), nil
}

func (s *classroomServiceImpl) ListAssignments(ctx context.Context, classroomID, readerUID string) ([]models.Assignment, error) {
	if _, err := s.requireMember(ctx, classroomID, readerUID); err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, models.ClassroomAssignmentsCollection(classroomID), nil,
		&docstore.Order{Field: "dataEntrega"}, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Msg("Failed to list assignments")
		return nil, err
	}

	assignments := make([]models.Assignment, 0, len(docs))
	for _, doc := range docs {
		assignments = append(assignments, models.AssignmentFromDocument(doc))
	}
	return assignments, nil
}

func (s *classroomServiceImpl) DeleteAssignment(ctx context.Context, classroomID, assignmentID, actorUID string) error {
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return err
	}
	if classroom.OwnerUID != actorUID {
		return apperrors.NewForbiddenError("only the classroom owner can delete assignments")
	}

	err = s.store.Delete(ctx, models.ClassroomAssignmentsCollection(classroomID), assignmentID)
	if err != nil {
		s.logger.Error().Err(err).Str("classroom", classroomID).Str("assignment", assignmentID).Msg("Failed to delete assignment")
	}
	return err
}

// requireMember loads the classroom and checks the uid is the owner or on
// the roster.
func (s *classroomServiceImpl) requireMember(ctx context.Context, classroomID, uid string) (models.Classroom, error) {
	classroom, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return models.Classroom{}, err
	}
	if uid != classroom.OwnerUID && !containsUID(classroom.RosterIDs, uid) {
		return models.Classroom{}, apperrors.NewForbiddenError("not a member of this classroom")
	}
	return classroom, nil
}

// fanOut notifies the whole roster except the author. Notification
// failures are logged and never fail the triggering write.
func (s *classroomServiceImpl) fanOut(ctx context.Context, classroom models.Classroom, authorUID, title, body string, kind models.NotificationKind) {
	recipients := classroom.RosterIDs
	if classroom.OwnerUID != authorUID {
		recipients = append(recipients, classroom.OwnerUID)
	}
	for _, recipientUID := range recipients {
		if recipientUID == authorUID {
			continue
		}
		if _, err := s.notifications.Notify(ctx, recipientUID, title, body, kind); err != nil {
			s.logger.Warn().Err(err).Str("classroom", classroom.ID).Str("recipient", recipientUID).Msg("Notification fan-out failed")
		}
	}
}
