package tests

import (
	"fmt"
	"log"
	"os"
	"testing"

	. "github.com/darasa-lms/darasa/apps/api/echo"
	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/chat"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/services/email"
	"github.com/darasa-lms/darasa/services/logger"
	"github.com/darasa-lms/darasa/services/realtime"
	"github.com/darasa-lms/darasa/storage/database/inmem"
)

var (
	conf     *core.Config
	db       *inmemdb.DB
	app      Server
	hub      *realtime.Hub
	registry *realtime.Registry

	usrRepo  user.Repository
	crsRepo  course.Repository
	enrRepo  enrollment.Repository
	chatRepo chat.Repository

	usrSvc  user.Service
	crsSvc  course.Service
	enrSvc  enrollment.Service
	chatSvc chat.Service
)

func TestMain(m *testing.M) {
	var err error

	conf = core.NewTestConfig()
	appLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, fmt.Sprintf("TEST-%s : ", conf.AppName), log.LstdFlags), conf)

	// set up DB & repos
	if db, err = inmemdb.Open(); err != nil {
		fmt.Printf("inmemdb.Open(): %v", err)
		os.Exit(1)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	enrRepo = inmemdb.NewEnrollmentRepository(db)
	chatRepo = inmemdb.NewChatRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewServiceMock(usrRepo, mailSvc, conf)
	crsSvc = course.NewService(crsRepo)
	enrSvc = enrollment.NewService(enrRepo, crsSvc, mailSvc, conf)
	chatSvc = chat.NewService(chatRepo, crsSvc)
	registry = realtime.NewRegistry()
	hub = realtime.NewHub(registry, chatSvc, appLogger)

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         appLogger,
		UserSvc:        usrSvc,
		CourseSvc:      crsSvc,
		EnrollmentSvc:  enrSvc,
		ChatSvc:        chatSvc,
		Hub:            hub,
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
}
